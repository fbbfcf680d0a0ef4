package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput checks job variables against a JSON schema document.
// A schema that cannot be compiled is reported as a single SCHEMA_ERROR.
func ValidateInput(input map[string]interface{}, schema map[string]interface{}) *ValidationResult {
	if input == nil {
		input = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(input),
	)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(schema)",
				Message: err.Error(),
				Code:    "SCHEMA_ERROR",
			}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(e),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

// fieldName reports the missing property for "required" errors, which
// gojsonschema attributes to the parent object.
func fieldName(e gojsonschema.ResultError) string {
	if e.Type() == "required" {
		if prop, ok := e.Details()["property"].(string); ok {
			if e.Field() == "(root)" {
				return prop
			}
			return e.Field() + "." + prop
		}
	}
	return e.Field()
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{7,}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func ValidateURL(url string) bool {
	return urlPattern.MatchString(url)
}
