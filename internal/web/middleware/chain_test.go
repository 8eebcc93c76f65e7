package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tag(name string, order *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	chain := NewChain(tag("first", &order)).Use(tag("second", &order), tag("third", &order))

	handler := chain.ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "first,second,third,handler" {
		t.Errorf("execution order = %s", got)
	}
}

func TestChain_AppendDoesNotMutate(t *testing.T) {
	var order []string
	base := NewChain(tag("base", &order))
	extended := base.Append(tag("extra", &order))

	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	base.Then(noop).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(order) != 1 {
		t.Fatalf("base chain ran %v", order)
	}

	order = nil
	extended.Then(noop).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := strings.Join(order, ","); got != "base,extra" {
		t.Errorf("extended chain ran %s", got)
	}
}
