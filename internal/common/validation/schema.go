package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// EventSchema is the canonical notification event document.
const EventSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["user_id", "event_type"],
  "properties": {
    "user_id":    {"type": "string", "format": "uuid"},
    "user_email": {"type": ["string", "null"], "format": "email"},
    "fcm_token":  {"type": ["string", "null"], "minLength": 1},
    "event_type": {"type": "string", "minLength": 1},
    "priority":   {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
    "data": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
    }
  }
}`

// TemplateSchema describes one template entry, as accepted by the admin API
// and the template catalog.
const TemplateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["event_type", "notification_type", "body_template"],
  "properties": {
    "event_type":        {"type": "string", "minLength": 1, "maxLength": 100},
    "notification_type": {"type": "string", "enum": ["email", "push"]},
    "subject_template":  {"type": ["string", "null"], "maxLength": 255},
    "title_template":    {"type": ["string", "null"], "maxLength": 255},
    "body_template":     {"type": "string", "minLength": 1},
    "priority":          {"type": "string", "enum": ["low", "normal", "high", "urgent"]},
    "is_active":         {"type": "boolean"}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator validates JSON documents against one compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

var (
	eventOnce      sync.Once
	eventValidator *Validator
)

// Event returns the shared validator for the canonical event schema.
func Event() *Validator {
	eventOnce.Do(func() {
		v, err := NewValidator(EventSchema)
		if err != nil {
			panic(err)
		}
		eventValidator = v
	})
	return eventValidator
}

// ValidateBytes validates a raw JSON document.
func (v *Validator) ValidateBytes(doc []byte) (*ValidationResult, error) {
	return v.validate(gojsonschema.NewBytesLoader(doc))
}

// Validate marshals value and validates the result, so the JSON tags of
// value decide the field names checked.
func (v *Validator) Validate(value interface{}) (*ValidationResult, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return v.ValidateBytes(raw)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
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
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}
