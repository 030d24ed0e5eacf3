package advisor

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var catalogueYAML []byte

// ToolSpec is one catalogue entry as declared in tools.yaml.
type ToolSpec struct {
	Name        ToolName       `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`

	schema *gojsonschema.Schema
}

type Catalogue struct {
	specs  []*ToolSpec
	byName map[ToolName]*ToolSpec
}

// LoadCatalogue parses the embedded tool catalogue.
func LoadCatalogue() (*Catalogue, error) {
	return ParseCatalogue(catalogueYAML)
}

// ParseCatalogue reads a YAML list of tools and compiles their parameter schemas.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var specs []*ToolSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse tool catalogue: %w", err)
	}
	if len(specs) == 0 {
		return nil, errors.New("tool catalogue is empty")
	}

	c := &Catalogue{specs: specs, byName: make(map[ToolName]*ToolSpec, len(specs))}
	for _, spec := range specs {
		if strings.TrimSpace(string(spec.Name)) == "" {
			return nil, errors.New("tool catalogue entry without a name")
		}
		if _, dup := c.byName[spec.Name]; dup {
			return nil, fmt.Errorf("tool %q declared twice", spec.Name)
		}
		if spec.Parameters == nil {
			spec.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Parameters))
		if err != nil {
			return nil, fmt.Errorf("compile parameters of %s: %w", spec.Name, err)
		}
		spec.schema = schema
		c.byName[spec.Name] = spec
	}

	return c, nil
}

// Names returns tool names in declaration order.
func (c *Catalogue) Names() []ToolName {
	out := make([]ToolName, 0, len(c.specs))
	for _, s := range c.specs {
		out = append(out, s.Name)
	}
	return out
}

func (c *Catalogue) Spec(name ToolName) (*ToolSpec, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// OpenAITools renders the catalogue as function tools for a chat completion request.
func (c *Catalogue) OpenAITools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(c.specs))
	for _, s := range c.specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(s.Name),
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return tools
}

// Validate checks args against the parameter schema of name.
func (c *Catalogue) Validate(name ToolName, args map[string]any) error {
	spec, ok := c.byName[name]
	if !ok {
		return &ToolDispatchError{Name: string(name)}
	}

	result, err := spec.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validate arguments of %s: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		problems = append(problems, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return &ArgumentsError{Tool: name, Problems: problems}
}
