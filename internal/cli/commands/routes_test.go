package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintRoutes(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	var out bytes.Buffer
	if err := printRoutes(&out, "/api", ""); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}

	text := out.String()
	if !strings.HasPrefix(text, "METHOD") {
		t.Errorf("expected header first, got:\n%s", text)
	}
	for _, want := range []string{"/healthz", "/api/resumes/{id}", "resumes.show", "/api/editor/ws", "auth.register"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output", want)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(line, "auth.register"):
			if strings.Contains(line, "token") {
				t.Errorf("register should not need a token: %q", line)
			}
		case strings.Contains(line, "resumes.show"):
			if !strings.Contains(line, "token") {
				t.Errorf("resumes.show should need a token: %q", line)
			}
		}
	}
}

func TestPrintRoutes_Filter(t *testing.T) {
	noColor = true
	defer func() { noColor = false }()

	var out bytes.Buffer
	if err := printRoutes(&out, "/v1", "ai."); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "/v1/ai/ats") {
		t.Errorf("expected AI routes under the custom prefix, got:\n%s", text)
	}
	if strings.Contains(text, "resumes.") {
		t.Errorf("expected only AI routes, got:\n%s", text)
	}

	out.Reset()
	if err := printRoutes(&out, "/api", "no-such-route"); err != nil {
		t.Fatalf("printRoutes: %v", err)
	}
	if strings.TrimSpace(out.String()) != "No routes match" {
		t.Errorf("unexpected output: %q", out.String())
	}
}
