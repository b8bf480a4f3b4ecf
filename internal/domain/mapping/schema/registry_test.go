package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltin(t *testing.T) {
	r, err := LoadBuiltin()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"overview", "hr", "financial", "sales", "marketing", "clients", "services", "cashflow"},
		r.IDs(),
	)

	sheetCounts := map[string]int{
		"overview":  1,
		"hr":        3,
		"financial": 3,
		"sales":     3,
		"marketing": 2,
		"clients":   2,
		"services":  1,
		"cashflow":  2,
	}
	for id, want := range sheetCounts {
		tpl, err := r.Template(id)
		require.NoError(t, err, id)
		assert.Len(t, tpl.Sheets, want, id)
	}
}

func TestTemplate_Overview(t *testing.T) {
	r := MustLoadBuiltin()
	tpl, err := r.Template("overview")
	require.NoError(t, err)

	assert.Equal(t, "Visão Geral", tpl.Name)
	sheet, ok := tpl.Sheet("Historico_Mensal")
	require.True(t, ok)
	assert.Equal(t, 9, sheet.RequiredCount())

	col, ok := sheet.Column("receita_total")
	require.True(t, ok)
	assert.Equal(t, "Receita Total (R$)", col.Label)
	assert.Equal(t, ColumnNumber, col.Type)

	conta, ok := sheet.Column("conta")
	require.True(t, ok)
	assert.Equal(t, ColumnSelect, conta.Type)
	assert.Equal(t, []string{"Zov", "Papaya", "Mdias"}, conta.Options)

	require.Len(t, sheet.Examples, 2)
	v, isNum := sheet.Examples[0]["receita_total"].Num()
	assert.True(t, isNum)
	assert.Equal(t, 150000.0, v)
	s, isText := sheet.Examples[0]["mes_ano"].Str()
	assert.True(t, isText)
	assert.Equal(t, "2024-01", s)
}

func TestTemplate_ClientsDescriptionWithCommas(t *testing.T) {
	tpl, err := MustLoadBuiltin().Template("clients")
	require.NoError(t, err)
	sheet, ok := tpl.Sheet("Clientes")
	require.True(t, ok)
	col, ok := sheet.Column("conta")
	require.True(t, ok)
	assert.Equal(t, "Zov, Papaya ou Mdias", col.Description)
}

func TestRegistry_UnknownTemplate(t *testing.T) {
	_, err := MustLoadBuiltin().Template("nope")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing sheets",
			doc:  "templates:\n  - id: x\n    name: X\n",
		},
		{
			name: "duplicate key",
			doc: `templates:
  - id: x
    sheets:
      - name: A
        columns:
          - {key: a, label: A, type: text, required: true}
          - {key: a, label: B, type: text, required: true}
`,
		},
		{
			name: "select without options",
			doc: `templates:
  - id: x
    sheets:
      - name: A
        columns:
          - {key: a, label: A, type: select, required: true}
`,
		},
		{
			name: "unknown type",
			doc: `templates:
  - id: x
    sheets:
      - name: A
        columns:
          - {key: a, label: A, type: money, required: true}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}
