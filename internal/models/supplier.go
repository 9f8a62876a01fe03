package models

// Supplier represents a company the store buys from.
type Supplier struct {
	CorporateName string `json:"corporateName" validate:"notblank"`
	// CNPJ is stored formatted, so the fixed length counts punctuation.
	CNPJ  string `json:"cnpj" validate:"notblank,len=18"`
	Email string `json:"email" validate:"notblank,emailshape"`
	Phone string `json:"phone" validate:"notblank,min=14"`
}
