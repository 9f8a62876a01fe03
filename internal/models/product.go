package models

// ProductTypes are the garment categories a product can belong to.
var ProductTypes = []string{"Calça", "Camiseta", "Camisa", "Acessórios", "Sapato", "Outros"}

// ProductColors are the colors a product can be registered with.
var ProductColors = []string{"Preto", "Branco", "Azul", "Vermelho", "Verde", "Amarelo", "Roxo", "Rosa", "Marrom", "Cinza", "Laranja", "Bege"}

// Product represents a garment in the store catalog.
type Product struct {
	Name            string `json:"name" validate:"notblank"`
	Type            string `json:"type" validate:"notblank,oneof=Calça Camiseta Camisa Acessórios Sapato Outros"`
	Color           string `json:"color" validate:"notblank,oneof=Preto Branco Azul Vermelho Verde Amarelo Roxo Rosa Marrom Cinza Laranja Bege"`
	Price           string `json:"price" validate:"notblank"` // masked currency, e.g. "10,50"
	Characteristics string `json:"characteristics" validate:"notblank"`
}
