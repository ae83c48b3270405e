// Package ai provides the Gemini-backed assistant used after a conversation
// leaves the scripted intake flow.
package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Client generates a free-form assistant reply for a finalized conversation.
type Client interface {
	Generate(ctx context.Context, message, sessionID string, sessionContext map[string]string) (string, error)
}

// DefaultSystemPrompt instructs the assistant how to behave once the guided
// intake has completed.
const DefaultSystemPrompt = `Você é um assistente virtual de um escritório de advocacia brasileiro.
O atendimento guiado já foi concluído e os dados do cliente já foram registrados.
Responda de forma breve, cordial e profissional, em português do Brasil.
Não forneça aconselhamento jurídico definitivo; explique que um advogado entrará em contato.
Se perguntarem sobre prazos ou andamento, diga que a equipe responsável dará retorno em breve.`

var quotaIndicators = []string{
	"429",
	"quota",
	"rate limit",
	"resourceexhausted",
	"resource_exhausted",
	"billing",
	"too many requests",
}

// IsQuotaError reports whether the error looks like an API quota or billing
// rejection rather than a transient failure. Quota errors put the assistant
// on cooldown instead of being retried.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range quotaIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// contextPreamble renders collected lead data into a stable prompt section so
// the assistant can answer with the client's own details.
func contextPreamble(sessionContext map[string]string) string {
	if len(sessionContext) == 0 {
		return ""
	}
	keys := make([]string, 0, len(sessionContext))
	for k := range sessionContext {
		if strings.TrimSpace(sessionContext[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Dados já coletados do cliente:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, sessionContext[k])
	}
	return b.String()
}
