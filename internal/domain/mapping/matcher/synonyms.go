package matcher

// synonyms maps a canonical column key to alternative names seen in real spreadsheets.
// Lookups compare normalized forms, so accents and separators here are cosmetic.
var synonyms = map[string][]string{
	// Datas
	"month": {"mes", "mês", "período", "periodo", "data", "competencia", "competência"},

	// RH
	"departamento":  {"depto", "dept", "área", "area", "setor"},
	"colaboradores": {"funcionarios", "funcionários", "empregados", "headcount", "qtd_colab", "qtde"},
	"custo":         {"custos", "despesa", "gasto", "valor_custo"},
	"turnover":      {"rotatividade", "turn_over"},
	"nps":           {"nps_score", "score_nps", "nota_nps"},
	"admissoes":     {"admissões", "contratacoes", "contratações", "entradas_rh"},
	"desligamentos": {"demissoes", "demissões", "saidas_rh", "saídas"},

	// Financeiro
	"receita":   {"faturamento", "revenue", "vendas_valor", "valor_receita"},
	"entradas":  {"receitas", "recebimentos", "entrada"},
	"saidas":    {"saídas", "pagamentos", "despesas", "saida"},
	"categoria": {"tipo", "classificacao", "classificação", "grupo"},
	"valor":     {"montante", "total", "amount"},

	// Marketing
	"investimento": {"invest", "gasto_mkt", "budget"},
	"leads":        {"leads_gerados", "contatos", "prospects"},
	"conversao":    {"conversão", "taxa_conversao", "conv_rate"},
	"roi":          {"retorno", "return", "roi_percent"},

	// Clientes
	"clientes": {"customers", "clients", "base_clientes", "qtd_clientes"},
	"ativos":   {"clientes_ativos", "active", "base_ativa"},
	"novos":    {"new", "novos_clientes", "aquisicao", "aquisição"},
	"perdidos": {"churn", "cancelados", "perdas", "churned"},

	// Serviços e produtos
	"servico": {"serviço", "service", "linha_servico"},
	"produto": {"product", "item", "linha_produto"},

	// Comercial
	"vendedor":  {"seller", "rep", "representante", "nome_vendedor"},
	"meta":      {"target", "objetivo", "goal", "meta_vendas"},
	"realizado": {"achieved", "atingido", "resultado"},
	"ligacoes":  {"ligações", "calls", "telefonemas"},
	"whatsapp":  {"wpp", "zap", "mensagens"},

	// Margem e lucro
	"margem":       {"margin", "margem_lucro", "margem_percent"},
	"lucro":        {"profit", "resultado", "lucro_liquido"},
	"receitaBruta": {"receita_bruta", "gross_revenue", "faturamento_bruto"},
	"impostos":     {"taxes", "tributos", "deducoes", "deduções"},
}

// normalizedSynonyms holds the synonym lists in normalized form, built once.
var normalizedSynonyms = func() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(synonyms))
	for key, names := range synonyms {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[Normalize(n)] = struct{}{}
		}
		out[key] = set
	}
	return out
}()

// Synonyms returns the synonym list registered for a canonical key.
func Synonyms(key string) []string {
	names := synonyms[key]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsSynonym reports whether source normalizes to one of key's synonyms.
func IsSynonym(key, source string) bool {
	set, ok := normalizedSynonyms[key]
	if !ok {
		return false
	}
	_, hit := set[Normalize(source)]
	return hit
}
