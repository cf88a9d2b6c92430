package model

import "time"

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Member is a person tracked by the church administration. Dates are kept as
// YYYY-MM-DD strings and may be empty.
type Member struct {
	ID               int64        `json:"id"`
	Name             string       `json:"name"`
	PhotoKey         string       `json:"photo_key,omitempty"`
	Street           string       `json:"street"`
	Number           string       `json:"number"`
	Complement       string       `json:"complement"`
	Neighborhood     string       `json:"neighborhood"`
	City             string       `json:"city"`
	State            string       `json:"state"`
	PostalCode       string       `json:"postal_code"`
	RG               string       `json:"rg"`
	CPF              string       `json:"cpf"`
	BirthDate        string       `json:"birth_date"`
	MaritalStatus    string       `json:"marital_status"`
	Phone            string       `json:"phone"`
	Mobile           string       `json:"mobile"`
	MotherName       string       `json:"mother_name"`
	FatherName       string       `json:"father_name"`
	SpiritBaptized   bool         `json:"spirit_baptized"`
	WaterBaptismDate string       `json:"water_baptism_date"`
	ChurchRole       string       `json:"church_role"`
	MinistryDate     string       `json:"ministry_date"`
	Status           MemberStatus `json:"status"`
	Congregation     string       `json:"congregation"`
	Notes            string       `json:"notes"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// MemberFilter narrows a member listing. Zero values match everything.
type MemberFilter struct {
	Status       MemberStatus
	Congregation string
	Search       string
}
