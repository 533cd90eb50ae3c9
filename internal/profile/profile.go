// Package profile caches the authenticated person's domain data: identity,
// address, subscription status, credit cards and contracts.
package profile

// UserProfile is the authenticated person and their derived state. Fields
// are optional until population; a zero ID means "not yet loaded".
type UserProfile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Document  string `json:"document"`
	BirthDate string `json:"birth_date"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	CellPhone string `json:"cell_phone"`

	Address           Address           `json:"address"`
	Signature         Signature         `json:"signature"`
	RegistrationError RegistrationError `json:"registration_error"`

	CreditCards []CreditCard `json:"credit_cards,omitempty"`
	Contracts   []Contract   `json:"contracts,omitempty"`
}

// Address is the person's street address.
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// Signature is the subscription sub-record.
type Signature struct {
	Active        bool          `json:"active"`
	Delinquencies []Delinquency `json:"delinquencies,omitempty"`
}

// Delinquency is one overdue installment on the subscription.
type Delinquency struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
}

// RegistrationError carries a failure reported by the third-party payment
// registration integration.
type RegistrationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreditCard is one stored payment card.
type CreditCard struct {
	Brand        string `json:"brand"`
	MaskedDigits string `json:"masked_digits"`
	ExpiryMonth  int    `json:"expiry_month"`
	ExpiryYear   int    `json:"expiry_year"`
	IssuerID     string `json:"issuer_id"`
}

// Contract is one purchased plan contract.
type Contract struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// Empty reports whether the profile has not been populated.
func (p UserProfile) Empty() bool {
	return p.ID == ""
}
