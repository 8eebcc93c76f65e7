package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// ErrInvalidBody marks client errors in request decoding; handlers map it to 400
var ErrInvalidBody = errors.New("invalid request body")

// DefaultMaxBodySize bounds JSON bodies. Resumes with long descriptions fit
// comfortably.
const DefaultMaxBodySize = 1 << 20

// Parser decodes HTTP request bodies
type Parser struct {
	maxBodySize int64
}

// NewParser creates a new request parser with default settings
func NewParser() *Parser {
	return &Parser{maxBodySize: DefaultMaxBodySize}
}

// NewParserWithMaxSize creates a parser with a custom max body size
func NewParserWithMaxSize(maxBytes int64) *Parser {
	return &Parser{maxBodySize: maxBytes}
}

// ParseJSON parses a JSON request body into target
func (p *Parser) ParseJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, p.maxBodySize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", ErrInvalidBody)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", ErrInvalidBody, maxErr.Limit)
		default:
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
	}

	if decoder.More() {
		return fmt.Errorf("%w: request body contains multiple JSON objects", ErrInvalidBody)
	}
	return nil
}

// DecodeJSON parses a JSON body with the default size limit
func DecodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	return NewParser().ParseJSON(w, r, target)
}

// GetQueryParam gets a query parameter
func GetQueryParam(r *http.Request, name string) string {
	return r.URL.Query().Get(name)
}

// GetQueryParamInt gets a query parameter as integer
func GetQueryParamInt(r *http.Request, name string, defaultValue int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
