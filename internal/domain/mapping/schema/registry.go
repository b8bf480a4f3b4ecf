package schema

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

//go:embed templates.yaml
var builtinTemplates []byte

// Registry is the read-only set of templates keyed by id.
type Registry struct {
	templates map[string]*Template
	order     []string
}

type templateFile struct {
	Templates []rawTemplate `yaml:"templates"`
}

type rawTemplate struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Sheets      []rawSheet `yaml:"sheets"`
}

type rawSheet struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Columns     []Column         `yaml:"columns"`
	Examples    []map[string]any `yaml:"examples"`
}

// LoadBuiltin parses the templates embedded in the binary.
func LoadBuiltin() (*Registry, error) {
	return Parse(builtinTemplates)
}

// MustLoadBuiltin is LoadBuiltin for package-level initialisation.
func MustLoadBuiltin() *Registry {
	r, err := LoadBuiltin()
	if err != nil {
		panic(err)
	}
	return r
}

// Parse builds a registry from a YAML template document.
func Parse(data []byte) (*Registry, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := &Registry{templates: make(map[string]*Template, len(file.Templates))}
	for _, raw := range file.Templates {
		tpl := Template{
			ID:          raw.ID,
			Name:        raw.Name,
			Description: raw.Description,
			Sheets:      make([]Sheet, 0, len(raw.Sheets)),
		}
		for _, rs := range raw.Sheets {
			sheet := Sheet{Name: rs.Name, Description: rs.Description, Columns: rs.Columns}
			for _, ex := range rs.Examples {
				sheet.Examples = append(sheet.Examples, exampleRow(ex))
			}
			tpl.Sheets = append(tpl.Sheets, sheet)
		}
		if err := tpl.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.templates[tpl.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate template id %q", ErrInvalidTemplate, tpl.ID)
		}
		r.templates[tpl.ID] = &tpl
		r.order = append(r.order, tpl.ID)
	}
	return r, nil
}

// Template returns the template for id.
func (r *Registry) Template(id string) (*Template, error) {
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tpl, nil
}

// IDs lists template ids in declaration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every template in declaration order.
func (r *Registry) All() []*Template {
	out := make([]*Template, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.templates[id])
	}
	return out
}

func exampleRow(raw map[string]any) dataset.Row {
	row := make(dataset.Row, len(raw))
	for k, value := range raw {
		switch v := value.(type) {
		case nil:
			row[k] = dataset.Null()
		case int:
			row[k] = dataset.Number(float64(v))
		case float64:
			row[k] = dataset.Number(v)
		case string:
			row[k] = dataset.Text(v)
		default:
			row[k] = dataset.Text(fmt.Sprint(v))
		}
	}
	return row
}
