package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/resumate-app/resumate/internal/domain"
)

// PathParam extracts a path parameter by name
func PathParam(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}

// PathID extracts a UUID path parameter in canonical form. A malformed id
// cannot name an existing row, so it yields domain.ErrNotFound.
func PathID(req *http.Request, name string) (string, error) {
	id, err := ParseID(chi.URLParam(req, name))
	if err != nil {
		return "", fmt.Errorf("path parameter %s: %w", name, err)
	}
	return id, nil
}

// ParseID canonicalises a UUID taken from anywhere in the request
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.ErrNotFound
	}
	return id.String(), nil
}
