package models

import (
	"strings"
	"time"
)

// Beneficiary is a person enrolled in the feeding program.
type Beneficiary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeneficiaryInput is the candidate field set for a create or a partial update.
// Nil fields were not provided by the caller.
type BeneficiaryInput struct {
	Name     *string `json:"name" validate:"required,nonul,min=1,max=100"`
	Age      *int    `json:"age" validate:"required,gte=0,lte=2147483647"`
	Location *string `json:"location" validate:"required,nonul,min=1,max=100"`
}

// Input returns the stored record as a fully populated candidate.
func (b Beneficiary) Input() BeneficiaryInput {
	return BeneficiaryInput{
		Name:     &b.Name,
		Age:      &b.Age,
		Location: &b.Location,
	}
}

// Merge overlays the fields present in patch.
func (in BeneficiaryInput) Merge(patch BeneficiaryInput) BeneficiaryInput {
	if patch.Name != nil {
		in.Name = patch.Name
	}
	if patch.Age != nil {
		in.Age = patch.Age
	}
	if patch.Location != nil {
		in.Location = patch.Location
	}
	return in
}

// Normalize trims surrounding whitespace from text fields.
func (in BeneficiaryInput) Normalize() BeneficiaryInput {
	in.Name = trimmed(in.Name)
	in.Location = trimmed(in.Location)
	return in
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
