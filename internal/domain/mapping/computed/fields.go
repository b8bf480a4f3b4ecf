package computed

import "github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"

var fields = map[string][]Field{
	"cashflow": {
		{
			Key:          "saldo",
			Label:        "Saldo (R$)",
			Dependencies: []string{"entradas", "saidas"},
			Calculate: func(row dataset.Row) (float64, bool) {
				entradas, ok1 := num(row, "entradas")
				saidas, ok2 := num(row, "saidas")
				if !ok1 || !ok2 {
					return 0, false
				}
				return entradas - saidas, true
			},
		},
		{
			// share of the period total, filled in by the dashboard
			Key:          "percentual",
			Label:        "Percentual (%)",
			Dependencies: []string{"valor"},
			Calculate:    func(dataset.Row) (float64, bool) { return 0, false },
		},
	},
	"hr": {
		{
			Key:          "turnover",
			Label:        "Turnover (%)",
			Dependencies: []string{"admissoes", "desligamentos"},
			Calculate: func(row dataset.Row) (float64, bool) {
				admissoes, ok1 := num(row, "admissoes")
				desligamentos, ok2 := num(row, "desligamentos")
				if !ok1 || !ok2 {
					return 0, false
				}
				media := (admissoes + desligamentos) / 2
				if media <= 0 {
					return 0, true
				}
				// headcount is assumed to be 100
				return roundTo((media/100)*100, 10), true
			},
		},
	},
	"financial": {
		{
			Key:          "receitaLiquida",
			Label:        "Receita Líquida (R$)",
			Dependencies: []string{"receitaBruta", "impostos"},
			Calculate: func(row dataset.Row) (float64, bool) {
				bruta, ok1 := num(row, "receitaBruta")
				impostos, ok2 := num(row, "impostos")
				if !ok1 || !ok2 {
					return 0, false
				}
				return bruta - impostos, true
			},
		},
		{
			Key:          "lucro",
			Label:        "Lucro (R$)",
			Dependencies: []string{"receitaLiquida", "custos", "despesas"},
			Calculate: func(row dataset.Row) (float64, bool) {
				recLiq, ok := num(row, "receitaLiquida")
				if !ok {
					bruta, ok1 := num(row, "receitaBruta")
					impostos, ok2 := num(row, "impostos")
					if !ok1 || !ok2 {
						return 0, false
					}
					recLiq = bruta - impostos
				}
				custos, ok1 := num(row, "custos")
				despesas, ok2 := num(row, "despesas")
				if !ok1 || !ok2 {
					return 0, false
				}
				return recLiq - custos - despesas, true
			},
		},
	},
	"services": {
		{
			Key:          "lucro",
			Label:        "Lucro (R$)",
			Dependencies: []string{"receita", "custo"},
			Calculate: func(row dataset.Row) (float64, bool) {
				receita, ok1 := num(row, "receita")
				custo, ok2 := num(row, "custo")
				if !ok1 || !ok2 {
					return 0, false
				}
				return receita - custo, true
			},
		},
		{
			Key:          "margem",
			Label:        "Margem (%)",
			Dependencies: []string{"receita", "custo"},
			Calculate: func(row dataset.Row) (float64, bool) {
				receita, ok1 := nonZero(row, "receita")
				custo, ok2 := num(row, "custo")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo(((receita-custo)/receita)*100, 10), true
			},
		},
	},
	"sales": {
		{
			Key:          "contatosNecessarios",
			Label:        "Contatos/Venda",
			Dependencies: []string{"ligacoes", "whatsapp", "oportunidadesConvertidas"},
			Calculate: func(row dataset.Row) (float64, bool) {
				ligacoes, ok1 := num(row, "ligacoes")
				whatsapp, ok2 := num(row, "whatsapp")
				convertidas, ok3 := nonZero(row, "oportunidadesConvertidas")
				if !ok1 || !ok2 || !ok3 {
					return 0, false
				}
				return roundTo((ligacoes+whatsapp)/convertidas, 10), true
			},
		},
		{
			Key:          "atingimento",
			Label:        "Atingimento (%)",
			Dependencies: []string{"oportunidadesConvertidas", "metaVendas"},
			Calculate: func(row dataset.Row) (float64, bool) {
				convertidas, ok1 := num(row, "oportunidadesConvertidas")
				meta, ok2 := nonZero(row, "metaVendas")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo((convertidas/meta)*100, 10), true
			},
		},
	},
	"marketing": {
		{
			Key:          "roi",
			Label:        "ROI (%)",
			Dependencies: []string{"investimento", "receita"},
			Calculate: func(row dataset.Row) (float64, bool) {
				investimento, ok1 := nonZero(row, "investimento")
				receita, ok2 := num(row, "receita")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo(((receita-investimento)/investimento)*100, 1), true
			},
		},
		{
			Key:          "cpl",
			Label:        "CPL (R$)",
			Dependencies: []string{"investimento", "leads"},
			Calculate: func(row dataset.Row) (float64, bool) {
				investimento, ok1 := num(row, "investimento")
				leads, ok2 := nonZero(row, "leads")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo(investimento/leads, 100), true
			},
		},
	},
	"clients": {
		{
			Key:          "churnRate",
			Label:        "Churn Rate (%)",
			Dependencies: []string{"perdidos", "ativos"},
			Calculate: func(row dataset.Row) (float64, bool) {
				perdidos, ok1 := num(row, "perdidos")
				ativos, ok2 := nonZero(row, "ativos")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo((perdidos/ativos)*100, 100), true
			},
		},
	},
	"overview": {
		{
			Key:          "variacao",
			Label:        "Variação (%)",
			Dependencies: []string{"valor", "anterior"},
			Calculate: func(row dataset.Row) (float64, bool) {
				atual, ok1 := num(row, "valor")
				anterior, ok2 := nonZero(row, "anterior")
				if !ok1 || !ok2 {
					return 0, false
				}
				return roundTo(((atual-anterior)/anterior)*100, 10), true
			},
		},
		{
			Key:          "crescimentoLiquido",
			Label:        "Crescimento Líquido (R$)",
			Dependencies: []string{"novos", "churn", "expansao"},
			Calculate: func(row dataset.Row) (float64, bool) {
				novos, ok1 := num(row, "novos")
				churn, ok2 := num(row, "churn")
				expansao, ok3 := num(row, "expansao")
				if !ok1 || !ok2 || !ok3 {
					return 0, false
				}
				return novos + churn + expansao, true
			},
		},
	},
}
