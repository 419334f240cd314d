package location

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Location is a school campus/site.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewLocation struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
}

func (nl *NewLocation) Validate(validate *validator.Validate) error {
	nl.Name = core.CleanString(nl.Name)
	nl.Address = core.CleanString(nl.Address)
	return validate.Struct(nl)
}

type UpdateLocation struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (ul *UpdateLocation) Validate(validate *validator.Validate, orig Location) error {
	if name := core.CleanString(ul.Name); name != "" {
		ul.Name = name
	} else {
		ul.Name = orig.Name
	}
	ul.Address = core.CleanString(ul.Address)
	return validate.Struct(ul)
}
