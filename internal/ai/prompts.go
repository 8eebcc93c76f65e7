package ai

import (
	"bytes"
	"embed"
	"strings"
	"text/template"
)

//go:embed prompts
var promptFS embed.FS

var (
	atsSystem            = mustRead("prompts/ats_system.txt")
	optimizeSystem       = mustRead("prompts/optimize_system.txt")
	summarySystem        = mustRead("prompts/summary_system.txt")
	workExperienceSystem = mustRead("prompts/work_experience_system.txt")
	projectSystem        = mustRead("prompts/project_system.txt")

	userTemplates = template.Must(template.New("").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"))
)

func mustRead(name string) string {
	data, err := promptFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := userTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
