package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors collects validation messages keyed by JSON field path
type Errors struct {
	Fields map[string][]string `json:"fields"`
}

// NewErrors creates an empty Errors
func NewErrors() *Errors {
	return &Errors{
		Fields: make(map[string][]string),
	}
}

// Add adds a validation message for a field
func (ve *Errors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

// HasErrors returns true if any field has a message
func (ve *Errors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Count returns the total number of messages across all fields
func (ve *Errors) Count() int {
	count := 0
	for _, messages := range ve.Fields {
		count += len(messages)
	}
	return count
}

// Err returns ve as an error when it holds messages, nil otherwise
func (ve *Errors) Err() error {
	if ve == nil || !ve.HasErrors() {
		return nil
	}
	return ve
}

// Error implements the error interface
func (ve *Errors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	fields := make([]string, 0, len(ve.Fields))
	for field := range ve.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var messages []string
	for _, field := range fields {
		for _, msg := range ve.Fields[field] {
			messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
		}
	}

	if len(messages) == 1 {
		return "validation failed: " + messages[0]
	}
	return "validation failed: " + strings.Join(messages, "; ")
}

// MarshalJSON implements json.Marshaler
func (ve *Errors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Fields: ve.Fields,
	})
}

// Field builds an Errors holding a single message
func Field(field, message string) *Errors {
	ve := NewErrors()
	ve.Add(field, message)
	return ve
}

// As extracts *Errors from an error chain
func As(err error) (*Errors, bool) {
	var ve *Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
