package response

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the error envelope returned by the API: a user-facing
// message plus optional field-attributed issues.
type ErrorResponse struct {
	Error  string  `json:"error"`
	Issues []Issue `json:"issues,omitempty"`
}

// Issue attributes a validation failure to a specific request field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var EmptyRequestBodyResponse = ErrorResponse{
	Error: "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = ErrorResponse{
	Error: "Invalid request body.",
}

var SlugConflictResponse = ErrorResponse{
	Error: "Slug is already in use. Please choose another one.",
}

var ServerErrorResponse = ErrorResponse{
	Error: "Internal server error",
}

// InvalidDataResponse builds the 400 envelope carrying validation issues.
func InvalidDataResponse(issues ...Issue) ErrorResponse {
	return ErrorResponse{
		Error:  "Invalid data",
		Issues: issues,
	}
}

// ValidationErrorResponse converts validator errors into the 400 envelope,
// attributing each failure to its JSON field name.
func ValidationErrorResponse(err error) ErrorResponse {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return BadRequestResponse
	}

	issues := make([]Issue, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		issues = append(issues, Issue{
			Field:   fieldErr.Field(),
			Message: validationMessage(fieldErr),
		})
	}

	return InvalidDataResponse(issues...)
}

func validationMessage(fieldErr validator.FieldError) string {
	if fieldErr.Tag() == "required" {
		switch fieldErr.Field() {
		case "url":
			return "Please enter a URL."
		case "slug":
			return "Please choose a slug."
		}
	}

	return "Invalid value."
}
