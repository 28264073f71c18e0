package http

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// SchemaError lists every violation found in a request body.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}

type requestSchemas struct {
	estimate *gojsonschema.Schema
	income   *gojsonschema.Schema
}

func loadRequestSchemas() (*requestSchemas, error) {
	estimate, err := compileSchema("schemas/estimate.json")
	if err != nil {
		return nil, err
	}
	income, err := compileSchema("schemas/income.json")
	if err != nil {
		return nil, err
	}
	return &requestSchemas{estimate: estimate, income: income}, nil
}

func compileSchema(name string) (*gojsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", name, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return s, nil
}

// validate checks body against s. Malformed JSON and schema violations
// both come back as *SchemaError.
func validate(s *gojsonschema.Schema, body []byte) error {
	result, err := s.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Problems: []string{"body is not valid JSON"}}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return &SchemaError{Problems: problems}
}
