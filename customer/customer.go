package customer

// Customer is one row of the customers table
type Customer struct {
	ID                 int    `json:"id" gorm:"column:id;primaryKey;autoIncrement"` // Assigned by the storage engine
	Name               string `json:"name" gorm:"column:name;size:100"`
	CountryOfBirth     string `json:"country_of_birth" gorm:"column:country_of_birth;size:50"`
	CountryOfResidence string `json:"country_of_residence" gorm:"column:country_of_residence;size:50"`
	Segment            string `json:"segment" gorm:"column:segment;size:50"` // Free-form label, not enumerated
}

// TableName pins the table regardless of gorm's naming strategy
func (Customer) TableName() string {
	return "customers"
}

// Request is the body accepted on create and update. Every field must be present and empty
// strings are accepted. id is required on the wire but never written: storage assigns it on
// create and the path decides it on update.
type Request struct {
	ID                 *int    `json:"id" validate:"required"`
	Name               *string `json:"name" validate:"required"`
	CountryOfBirth     *string `json:"country_of_birth" validate:"required"`
	CountryOfResidence *string `json:"country_of_residence" validate:"required"`
	Segment            *string `json:"segment" validate:"required"`
}

// Customer converts a validated Request
func (r *Request) Customer() Customer {
	c := Customer{
		Name:               *r.Name,
		CountryOfBirth:     *r.CountryOfBirth,
		CountryOfResidence: *r.CountryOfResidence,
		Segment:            *r.Segment,
	}
	if r.ID != nil {
		c.ID = *r.ID
	}
	return c
}
