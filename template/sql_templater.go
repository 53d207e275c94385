package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// ExecuteSQLTemplate reads a SQL template file, substitutes params and
// returns the rendered statement.
func ExecuteSQLTemplate(templatePath string, params map[string]any) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}
	return RenderSQL(string(content), params)
}

// RenderSQL substitutes params into an in-memory SQL template.
func RenderSQL(content string, params map[string]any) (string, error) {
	tmpl, err := template.New("sql").Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ReadSQLTemplate reads a SQL template file and returns its contents as a string
func ReadSQLTemplate(templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}
	return string(content), nil
}
