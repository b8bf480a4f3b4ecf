package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Mês/Ano", "mes/ano"},
		{"Receita Total (R$)", "receitatotal(r$)"},
		{"qtd_colab", "qtdcolab"},
		{"  Data-Admissão ", "dataadmissao"},
		{"Nº Funcionários", "nºfuncionarios"},
		{"ÁREA", "area"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"Mês/Ano", "Receita Total (R$)", "Custos_Variáveis", "Ligações - WhatsApp", "Nº Clientes Ativos"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"equal after normalization", "Receita_Total", "receita total", 1},
		{"containment", "receita", "Receita Total (R$)", 0.8},
		{"empty is contained", "", "abc", 0.8},
		{"both empty", "", "", 1},
		{"one substitution", "custo", "custa", 0.8},
		{"disjoint", "abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"Faturamento", "receita"},
		{"Nome Completo", "nome"},
		{"vendedr", "vendedor"},
		{"Custo Pessoal (R$)", "custo_operacional"},
		{"", "x"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_Range(t *testing.T) {
	names := []string{"mes", "Mês/Ano", "receita", "Receita Bruta", "x", "", "Ligações", "whatsapp"}
	for _, a := range names {
		for _, b := range names {
			s := Similarity(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestSynonyms(t *testing.T) {
	assert.Contains(t, Synonyms("receita"), "faturamento")
	assert.Contains(t, Synonyms("receitaBruta"), "gross_revenue")
	assert.Empty(t, Synonyms("unknown"))

	assert.True(t, IsSynonym("receita", "Faturamento"))
	assert.True(t, IsSynonym("desligamentos", "Saidas"))
	assert.True(t, IsSynonym("ligacoes", "Ligacoes"))
	assert.False(t, IsSynonym("receita", "custos"))
}

func TestFindBestMatch(t *testing.T) {
	candidates := []Candidate{
		{Key: "mes_ano", Label: "Mês/Ano"},
		{Key: "receita", Label: "Receita (R$)"},
		{Key: "custo", Label: "Custo (R$)"},
	}

	tests := []struct {
		name      string
		source    string
		wantKey   string
		wantScore float64
		wantFound bool
	}{
		{"exact label", "Mês/Ano", "mes_ano", ExactScore, true},
		{"exact key", "MES_ANO", "mes_ano", ExactScore, true},
		{"synonym", "faturamento", "receita", SynonymScore, true},
		{"containment", "Receita Mensal", "receita", 0.8, true},
		{"below threshold", "zzz", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := FindBestMatch(tt.source, candidates)
			require.Equal(t, tt.wantFound, found)
			if !found {
				return
			}
			assert.Equal(t, tt.wantKey, got.Key)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
		})
	}
}

func TestFindBestMatch_TieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{Key: "receita_servicos", Label: "Receita Serviços"},
		{Key: "receita_produtos", Label: "Receita Produtos"},
	}
	got, found := FindBestMatch("receita", candidates)
	require.True(t, found)
	assert.Equal(t, "receita_servicos", got.Key)
	assert.InDelta(t, 0.8, got.Score, 1e-9)
}

func TestFindBestMatch_ExactBeatsEarlierFuzzy(t *testing.T) {
	candidates := []Candidate{
		{Key: "receita_total", Label: "Receita Total"},
		{Key: "receita", Label: "Receita"},
	}
	got, found := FindBestMatch("Receita", candidates)
	require.True(t, found)
	assert.Equal(t, "receita", got.Key)
	assert.Equal(t, ExactScore, got.Score)
}
