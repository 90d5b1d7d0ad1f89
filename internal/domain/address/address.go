package address

// Address is a street address resolved from a postal code.
type Address struct {
	CEP          string // CEP is the postal code as returned by the lookup service
	Street       string // Street is the logradouro
	Complement   string // Complement is the complemento, often empty
	Neighborhood string // Neighborhood is the bairro
	City         string // City is the localidade
	State        string // State is the two-letter UF
}
