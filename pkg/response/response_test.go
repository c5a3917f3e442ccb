package response

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestInvalidDataResponse(t *testing.T) {
	tests := []struct {
		name   string
		issues []Issue
		want   ErrorResponse
	}{
		{
			name: "without issues",
			want: ErrorResponse{
				Error: "Invalid data",
			},
		},
		{
			name: "with issues",
			issues: []Issue{
				{Field: "slug", Message: "Slug is too long."},
			},
			want: ErrorResponse{
				Error: "Invalid data",
				Issues: []Issue{
					{Field: "slug", Message: "Slug is too long."},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InvalidDataResponse(tt.issues...)

			assert.Equal(t, tt.want.Error, got.Error)
			assert.Equal(t, tt.want.Issues, got.Issues)
		})
	}
}

func TestValidationErrorResponse(t *testing.T) {
	t.Run("non-validation error", func(t *testing.T) {
		got := ValidationErrorResponse(errors.New("unknown error"))

		assert.Equal(t, BadRequestResponse, got)
	})

	t.Run("missing required fields", func(t *testing.T) {
		validate := validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("json")
		})

		type payload struct {
			URL  string `json:"url" validate:"required"`
			Slug string `json:"slug" validate:"required"`
		}

		err := validate.Struct(payload{})
		assert.Error(t, err)

		got := ValidationErrorResponse(err)

		assert.Equal(t, "Invalid data", got.Error)
		assert.Len(t, got.Issues, 2)
		assert.Equal(t, "url", got.Issues[0].Field)
		assert.Equal(t, "Please enter a URL.", got.Issues[0].Message)
		assert.Equal(t, "slug", got.Issues[1].Field)
		assert.Equal(t, "Please choose a slug.", got.Issues[1].Message)
	})
}
