package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type positionRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	PageKeys    []string `json:"page_keys" validate:"dive,required"`
	Internal    string   `json:"-"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := positionRequest{Name: "Sales Staff", PageKeys: []string{"orders"}}

		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("missing required field uses json name", func(t *testing.T) {
		s := positionRequest{}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "name is required", fields["name"])
	})

	t.Run("too long", func(t *testing.T) {
		s := positionRequest{Name: string(make([]byte, 101))}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Equal(t, "name must be at most 100", fields["name"])
	})

	t.Run("empty element in slice", func(t *testing.T) {
		s := positionRequest{Name: "Manager", PageKeys: []string{"orders", ""}}

		fields := GetValidationFields(ValidateStruct(&s))
		assert.Len(t, fields, 1)
		for k := range fields {
			assert.Contains(t, k, "page_keys")
		}
	})
}

func TestValidationError_Details(t *testing.T) {
	err := &ValidationError{
		Message: "Validation failed",
		Fields:  map[string]string{"name": "name is required"},
	}

	assert.Equal(t, "Validation failed", err.Error())
	assert.Equal(t, map[string]interface{}{"name": "name is required"}, err.Details())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Fields: map[string]string{}}))
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()

	got, err := ParseUUID(" "+id.String()+" ", "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("not-a-uuid", "admin id")
	require.Error(t, err)
	assert.Equal(t, "admin id must be a valid UUID", err.Error())
}
