// Package schema holds the canonical dashboard templates: for each page, the sheets
// and columns an upload has to be mapped onto.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidTemplate  = errors.New("invalid template definition")
)

// ColumnType is the value type a target column expects.
type ColumnType string

const (
	ColumnText   ColumnType = "text"
	ColumnNumber ColumnType = "number"
	ColumnDate   ColumnType = "date"
	ColumnSelect ColumnType = "select"
)

func (t ColumnType) valid() bool {
	switch t {
	case ColumnText, ColumnNumber, ColumnDate, ColumnSelect:
		return true
	}
	return false
}

// Column is one target column of a template sheet.
type Column struct {
	Key         string     `yaml:"key" json:"key"`
	Label       string     `yaml:"label" json:"label"`
	Type        ColumnType `yaml:"type" json:"type"`
	Required    bool       `yaml:"required" json:"required"`
	Description string     `yaml:"description" json:"description"`
	Options     []string   `yaml:"options,omitempty" json:"options,omitempty"`
}

// Sheet is one named tab of a template.
type Sheet struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	Columns     []Column      `yaml:"columns" json:"columns"`
	Examples    []dataset.Row `yaml:"-" json:"examples,omitempty"`
}

// RequiredCount returns how many columns are marked required.
func (s *Sheet) RequiredCount() int {
	n := 0
	for _, c := range s.Columns {
		if c.Required {
			n++
		}
	}
	return n
}

// Column looks up a column by key.
func (s *Sheet) Column(key string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// Template describes one dashboard page's expected upload.
type Template struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Sheets      []Sheet `yaml:"sheets" json:"sheets"`
}

// Sheet looks up a template sheet by exact name.
func (t *Template) Sheet(name string) (*Sheet, bool) {
	for i := range t.Sheets {
		if t.Sheets[i].Name == name {
			return &t.Sheets[i], true
		}
	}
	return nil, false
}

// SheetNames lists the template's sheet names in order.
func (t *Template) SheetNames() []string {
	names := make([]string, len(t.Sheets))
	for i, s := range t.Sheets {
		names[i] = s.Name
	}
	return names
}

func (t *Template) validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: template without id", ErrInvalidTemplate)
	}
	if len(t.Sheets) == 0 {
		return fmt.Errorf("%w: template %q has no sheets", ErrInvalidTemplate, t.ID)
	}
	seenSheets := make(map[string]struct{}, len(t.Sheets))
	for _, s := range t.Sheets {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: template %q has an unnamed sheet", ErrInvalidTemplate, t.ID)
		}
		if _, dup := seenSheets[s.Name]; dup {
			return fmt.Errorf("%w: template %q repeats sheet %q", ErrInvalidTemplate, t.ID, s.Name)
		}
		seenSheets[s.Name] = struct{}{}

		seenKeys := make(map[string]struct{}, len(s.Columns))
		for _, c := range s.Columns {
			if c.Key == "" {
				return fmt.Errorf("%w: sheet %s/%s has a column without key", ErrInvalidTemplate, t.ID, s.Name)
			}
			if _, dup := seenKeys[c.Key]; dup {
				return fmt.Errorf("%w: sheet %s/%s repeats key %q", ErrInvalidTemplate, t.ID, s.Name, c.Key)
			}
			seenKeys[c.Key] = struct{}{}
			if !c.Type.valid() {
				return fmt.Errorf("%w: column %s.%s has unknown type %q", ErrInvalidTemplate, s.Name, c.Key, c.Type)
			}
			if c.Type == ColumnSelect && len(c.Options) == 0 {
				return fmt.Errorf("%w: select column %s.%s has no options", ErrInvalidTemplate, s.Name, c.Key)
			}
		}
	}
	return nil
}
