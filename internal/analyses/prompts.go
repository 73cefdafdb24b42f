package analyses

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPromptDocumentRunes bounds how much decision text goes into a prompt.
const maxPromptDocumentRunes = 8000

const summaryPromptTemplate = `
Faça um resumo conciso em até 2 linhas do seguinte documento jurídico do TCU:

%s

FOQUE ESPECIFICAMENTE em:
- Qual foi a irregularidade ou problema na administração pública identificado
- Qual foi a decisão/orientação do TCU sobre o caso
- Se houver, o impacto financeiro, prejuízo ao erário ou sanção aplicada

Resposta em português, sendo direto e objetivo nos pontos principais.
`

const relevancePromptTemplate = `
CASO CONCRETO ESPECÍFICO:
%s

JURISPRUDÊNCIA DO TCU PARA ANÁLISE:
%s

CRITÉRIOS RIGOROSOS DE RELEVÂNCIA:
Para ser considerada RELEVANTE, a jurisprudência deve atender a PELO MENOS 3 dos seguintes 6 critérios específicos (≥ 50 %%):

1. VIOLAÇÃO DE PRINCÍPIOS DA ADMINISTRAÇÃO PÚBLICA:
   - Ilegalidade, impessoalidade, moralidade, publicidade ou eficiência.

2. IRREGULARIDADES EM CONTRATAÇÕES E LICITAÇÕES:
   - Direcionamento de editais, critérios restritivos, dispensa ou inexigibilidade sem fundamentação adequada, pesquisa de preços falha.

3. DANO AO ERÁRIO E ASPECTOS ECONÔMICO-FINANCEIROS:
   - Sobrepreço, superfaturamento, renúncia injustificada de receita, metodologia de cálculo do dano.

4. DEFICIÊNCIAS DE CONTROLE INTERNO E GOVERNANÇA:
   - Ausência de controles internos, falha na prestação de contas, conflito de interesses, opacidade de informações.

5. GESTÃO DE PESSOAL E FOLHA DE PAGAMENTO:
   - Admissão sem concurso, terceirização irregular, pagamentos indevidos, contribuições previdenciárias.

6. PRECEDENTE JURÍDICO COM APLICABILIDADE ESPECÍFICA:
   - Fixação de entendimento, parâmetro objetivo ou metodologia aplicável a casos análogos.

RESPOSTA OBRIGATÓRIA:
Se atender rigorosamente aos critérios, responda EXATAMENTE:
RELEVANTE: [Critérios atendidos: X, Y, Z] - [Explicação específica em até 2 linhas sobre como a jurisprudência se aplica diretamente às irregularidades do caso concreto]

Caso contrário, responda EXATAMENTE:
NÃO RELACIONADO
`

// SummaryPrompt asks for a two-line summary of a decision.
func SummaryPrompt(documentText string) string {
	return fmt.Sprintf(summaryPromptTemplate, truncateRunes(documentText, maxPromptDocumentRunes))
}

// RelevancePrompt asks for a verdict in one of the two shapes ParseVerdict accepts.
func RelevancePrompt(caseDescription, documentText string) string {
	return fmt.Sprintf(relevancePromptTemplate, strings.TrimSpace(caseDescription), truncateRunes(documentText, maxPromptDocumentRunes))
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
