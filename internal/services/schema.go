package services

import (
	"time"

	"smooth/internal/format"
	"smooth/internal/models"
)

// Field describes one input of a record form.
type Field struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Mask    format.Kind `json:"mask"`
	Default string      `json:"default,omitempty"`
	// Options lists the choices of a dropdown field.
	Options []string `json:"options,omitempty"`
	// ReadOnly fields are filled by the service, never by user input.
	ReadOnly bool `json:"read_only,omitempty"`
}

// Schema binds a record type to its form: inputs, masks, messages and the
// collection it is stored in.
type Schema[T any] struct {
	Entity     string
	Collection string
	Fields     []Field
	// Messages are keyed "field.tag" or "field"; see validation.Validator.
	Messages map[string]string
	// Stamp sets service-owned fields right before validation.
	Stamp func(record *T, now time.Time, editing bool)
}

func (s *Schema[T]) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema[T]) defaults() map[string]string {
	fields := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = f.Default
	}
	return fields
}

// ProductSchema is the product registration form.
func ProductSchema() *Schema[models.Product] {
	return &Schema[models.Product]{
		Entity:     "product",
		Collection: "products",
		Fields: []Field{
			{Name: "name", Label: "Nome do produto", Mask: format.KindNone},
			{Name: "type", Label: "Tipo do produto", Mask: format.KindNone, Default: "Camisa", Options: models.ProductTypes},
			{Name: "color", Label: "Cor do produto", Mask: format.KindNone, Default: "Preto", Options: models.ProductColors},
			{Name: "price", Label: "Preço do produto", Mask: format.KindCurrency},
			{Name: "characteristics", Label: "Características do produto", Mask: format.KindNone},
		},
		Messages: map[string]string{
			"name":            "Nome do produto é obrigatório",
			"type.notblank":   "Tipo do produto é obrigatório",
			"type.oneof":      "Tipo do produto inválido",
			"color.notblank":  "Cor do produto é obrigatória",
			"color.oneof":     "Cor do produto inválida",
			"price":           "Preço do produto é obrigatório",
			"characteristics": "Características do produto são obrigatórias",
		},
	}
}

// SupplierSchema is the supplier registration form.
func SupplierSchema() *Schema[models.Supplier] {
	return &Schema[models.Supplier]{
		Entity:     "supplier",
		Collection: "suppliers",
		Fields: []Field{
			{Name: "corporateName", Label: "Razão Social", Mask: format.KindNone},
			{Name: "cnpj", Label: "CNPJ", Mask: format.KindCNPJ},
			{Name: "email", Label: "E-mail", Mask: format.KindNone},
			{Name: "phone", Label: "Telefone", Mask: format.KindPhone},
		},
		Messages: map[string]string{
			"corporateName":    "Razão Social é obrigatória",
			"cnpj.notblank":    "CNPJ é obrigatório",
			"cnpj.len":         "CNPJ deve ter 14 dígitos",
			"email.notblank":   "E-mail é obrigatório",
			"email.emailshape": "E-mail inválido",
			"phone.notblank":   "Telefone é obrigatório",
			"phone.min":        "Telefone inválido",
		},
	}
}

// ReviewSchema is the customer review form. The review date is set when the
// review is created and kept unchanged by later edits.
func ReviewSchema() *Schema[models.Review] {
	return &Schema[models.Review]{
		Entity:     "review",
		Collection: "reviews",
		Fields: []Field{
			{Name: "customerName", Label: "Nome do cliente", Mask: format.KindName},
			{Name: "grade", Label: "Nota", Mask: format.KindGrade},
			{Name: "comment", Label: "Comentário", Mask: format.KindNone},
			{Name: "reviewDate", Label: "Data da avaliação", ReadOnly: true},
			{Name: "image", Label: "Imagem", Mask: format.KindNone},
		},
		Messages: map[string]string{
			"customerName.notblank":   "Nome do cliente é obrigatório",
			"customerName.personname": "Nome deve conter apenas letras",
			"customerName":            "Nome deve ter entre 2 e 50 caracteres",
			"grade.notblank":          "Nota é obrigatória",
			"grade":                   "Nota deve ser um número de 0 a 5",
			"comment.notblank":        "Comentário é obrigatório",
			"comment":                 "Comentário deve ter entre 10 e 500 caracteres",
			"image.notblank":          "Imagem é obrigatória",
			"image":                   "Imagem deve ser uma URL ou um conteúdo base64",
		},
		Stamp: func(r *models.Review, now time.Time, editing bool) {
			if !editing {
				r.ReviewDate = now.Format(models.ReviewDateLayout)
			}
		},
	}
}
