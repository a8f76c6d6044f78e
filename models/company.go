package models

// Company is the tenant that scopes every other row.
type Company struct {
	ID           string `json:"id" bson:"_id,omitempty"`
	Slug         string `json:"slug" bson:"slug"`
	Name         string `json:"name" bson:"name"`
	Currency     string `json:"currency" bson:"currency"`
	SupportEmail string `json:"supportEmail,omitempty" bson:"support_email,omitempty"`
	// PaymentMethods are the bank accounts and crypto wallets buyers may pay into.
	PaymentMethods []PaymentMethodRef `json:"paymentMethods,omitempty" bson:"payment_methods,omitempty"`
}

// PaymentMethod finds a configured method by type and id.
func (c Company) PaymentMethod(typ, id string) (PaymentMethodRef, bool) {
	for _, m := range c.PaymentMethods {
		if m.Type == typ && m.ID == id {
			return m, true
		}
	}
	return PaymentMethodRef{}, false
}

// Profile is a user of a company; the id is the user id carried in tokens.
type Profile struct {
	ID        string `json:"id" bson:"_id,omitempty"`
	CompanyID string `json:"companyId" bson:"company_id"`
	FullName  string `json:"fullName" bson:"full_name"`
	Email     string `json:"email" bson:"email"`
	Phone     string `json:"phone,omitempty" bson:"phone,omitempty"`
	Role      string `json:"role" bson:"role"`
}
