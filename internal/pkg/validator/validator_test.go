package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Capacity int    `json:"capacity" validate:"gt=0"`
	Note     string `validate:"max=3"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Email: "a@b.co", Capacity: 1}))

	errs := Validate(sample{Email: "nope", Capacity: 0, Note: "long"})
	assert.Equal(t, map[string]string{
		"email":    "email",
		"capacity": "gt",
		"Note":     "max",
	}, errs)
}
