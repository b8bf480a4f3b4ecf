package computed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

func numberAt(t *testing.T, row dataset.Row, key string) float64 {
	t.Helper()
	v, ok := row[key]
	require.True(t, ok, "missing %s", key)
	f, isNum := v.Num()
	require.True(t, isNum, "%s is not a number", key)
	return f
}

func TestApplyComputedFields(t *testing.T) {
	tests := []struct {
		name     string
		template string
		row      dataset.Row
		key      string
		want     float64
	}{
		{"cashflow saldo", "cashflow", dataset.Row{"entradas": dataset.Number(100), "saidas": dataset.Number(40)}, "saldo", 60},
		{"cashflow saldo from text", "cashflow", dataset.Row{"entradas": dataset.Text("R$ 1.000,00"), "saidas": dataset.Number(250)}, "saldo", 750},
		{"hr turnover", "hr", dataset.Row{"admissoes": dataset.Number(3), "desligamentos": dataset.Number(4)}, "turnover", 3.5},
		{"hr turnover zero", "hr", dataset.Row{"admissoes": dataset.Number(0), "desligamentos": dataset.Number(0)}, "turnover", 0},
		{"financial receita liquida", "financial", dataset.Row{"receitaBruta": dataset.Number(1000), "impostos": dataset.Number(150)}, "receitaLiquida", 850},
		{"services margem", "services", dataset.Row{"receita": dataset.Number(3), "custo": dataset.Number(2)}, "margem", 33.3},
		{"services lucro", "services", dataset.Row{"receita": dataset.Number(80000), "custo": dataset.Number(40000)}, "lucro", 40000},
		{"sales contatos", "sales", dataset.Row{"ligacoes": dataset.Number(25), "whatsapp": dataset.Number(18), "oportunidadesConvertidas": dataset.Number(3)}, "contatosNecessarios", 14.3},
		{"sales atingimento", "sales", dataset.Row{"oportunidadesConvertidas": dataset.Number(18), "metaVendas": dataset.Number(25)}, "atingimento", 72},
		{"marketing roi", "marketing", dataset.Row{"investimento": dataset.Number(5000), "receita": dataset.Number(48000)}, "roi", 860},
		{"marketing cpl", "marketing", dataset.Row{"investimento": dataset.Number(5000), "leads": dataset.Number(150)}, "cpl", 33.33},
		{"clients churn", "clients", dataset.Row{"perdidos": dataset.Number(1), "ativos": dataset.Number(3)}, "churnRate", 33.33},
		{"overview variacao", "overview", dataset.Row{"valor": dataset.Text("110"), "anterior": dataset.Number(100)}, "variacao", 10},
		{"overview crescimento", "overview", dataset.Row{"novos": dataset.Number(10), "churn": dataset.Number(-4), "expansao": dataset.Number(2)}, "crescimentoLiquido", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyComputedFields([]dataset.Row{tt.row}, tt.template)
			require.Len(t, out, 1)
			assert.InDelta(t, tt.want, numberAt(t, out[0], tt.key), 1e-9)
		})
	}
}

func TestApplyComputedFields_FinancialChaining(t *testing.T) {
	rows := []dataset.Row{{
		"receitaBruta": dataset.Number(1000),
		"impostos":     dataset.Number(100),
		"custos":       dataset.Number(300),
		"despesas":     dataset.Number(200),
	}}

	out := ApplyComputedFields(rows, "financial")

	assert.Equal(t, 900.0, numberAt(t, out[0], "receitaLiquida"))
	assert.Equal(t, 400.0, numberAt(t, out[0], "lucro"))
}

func TestApplyComputedFields_FailSoft(t *testing.T) {
	tests := []struct {
		name     string
		template string
		row      dataset.Row
		key      string
	}{
		{"saldo without saidas", "cashflow", dataset.Row{"entradas": dataset.Number(100)}, "saldo"},
		{"saldo with null saidas", "cashflow", dataset.Row{"entradas": dataset.Number(100), "saidas": dataset.Null()}, "saldo"},
		{"saldo with text saidas", "cashflow", dataset.Row{"entradas": dataset.Number(100), "saidas": dataset.Text("n/a")}, "saldo"},
		{"margem zero receita", "services", dataset.Row{"receita": dataset.Number(0), "custo": dataset.Number(10)}, "margem"},
		{"cpl zero leads", "marketing", dataset.Row{"investimento": dataset.Number(10), "leads": dataset.Number(0)}, "cpl"},
		{"roi zero investimento", "marketing", dataset.Row{"investimento": dataset.Number(0), "receita": dataset.Number(10)}, "roi"},
		{"churn zero ativos", "clients", dataset.Row{"perdidos": dataset.Number(1), "ativos": dataset.Number(0)}, "churnRate"},
		{"lucro without custos", "financial", dataset.Row{"receitaLiquida": dataset.Number(1), "despesas": dataset.Number(1)}, "lucro"},
		{"variacao zero anterior", "overview", dataset.Row{"valor": dataset.Number(1), "anterior": dataset.Number(0)}, "variacao"},
		{"percentual always null", "cashflow", dataset.Row{"valor": dataset.Number(1)}, "percentual"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ApplyComputedFields([]dataset.Row{tt.row}, tt.template)
			require.Len(t, out, 1)
			v, present := out[0][tt.key]
			if present {
				assert.True(t, v.IsNull(), "%s should stay null", tt.key)
			}
		})
	}
}

func TestApplyComputedFields_NeverOverwrites(t *testing.T) {
	rows := []dataset.Row{
		{"entradas": dataset.Number(100), "saidas": dataset.Number(40), "saldo": dataset.Number(999)},
		{"entradas": dataset.Number(100), "saidas": dataset.Number(40), "saldo": dataset.Text("")},
		{"entradas": dataset.Number(100), "saidas": dataset.Number(40), "saldo": dataset.Null()},
	}

	out := ApplyComputedFields(rows, "cashflow")

	assert.Equal(t, 999.0, numberAt(t, out[0], "saldo"))
	assert.True(t, out[1]["saldo"].Equal(dataset.Text("")), "empty string counts as supplied")
	assert.Equal(t, 60.0, numberAt(t, out[2], "saldo"), "null is filled")
}

func TestApplyComputedFields_DoesNotMutateInput(t *testing.T) {
	row := dataset.Row{"entradas": dataset.Number(5), "saidas": dataset.Number(2)}
	out := ApplyComputedFields([]dataset.Row{row}, "cashflow")

	_, has := row["saldo"]
	assert.False(t, has)
	assert.Equal(t, 3.0, numberAt(t, out[0], "saldo"))
}

func TestApplyComputedFields_UnknownTemplate(t *testing.T) {
	rows := []dataset.Row{{"a": dataset.Number(1)}}
	out := ApplyComputedFields(rows, "unknown")
	assert.Equal(t, rows, out)
	assert.Empty(t, FieldsFor("unknown"))
}

func TestFieldsFor_Order(t *testing.T) {
	keys := func(fs []Field) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.Key
		}
		return out
	}
	assert.Equal(t, []string{"receitaLiquida", "lucro"}, keys(FieldsFor("financial")))
	assert.Equal(t, []string{"saldo", "percentual"}, keys(FieldsFor("cashflow")))
	assert.Equal(t, []string{"lucro", "margem"}, keys(FieldsFor("services")))
}
