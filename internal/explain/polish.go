package explain

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/pkg/anthropic"
)

// Polisher rewrites the deterministic reasoning text into smoother prose.
// It is strictly best-effort: any failure returns the original payload
// unchanged, and only the Reasoning field is ever replaced.
type Polisher struct {
	client anthropic.Client
	model  string
}

func NewPolisher(client anthropic.Client, model string) *Polisher {
	return &Polisher{client: client, model: model}
}

const polishSystem = "You edit insurance-claim recommendation rationales. " +
	"Rewrite the user's text as one short, natural paragraph. Keep every fact, " +
	"number, and name exactly as given. Add nothing. Reply with the paragraph only."

// Polish returns the payload with its reasoning rewritten, or the input
// payload untouched when the client is absent or the call fails.
func (p *Polisher) Polish(ctx context.Context, payload model.ExplanationPayload) model.ExplanationPayload {
	if p == nil || p.client == nil || payload.Reasoning == "" {
		return payload
	}

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: 512,
		System:    polishSystem,
		Messages:  []anthropic.Message{{Role: "user", Content: payload.Reasoning}},
	})
	if err != nil {
		zap.L().Warn("explain: polish failed, keeping deterministic text", zap.Error(err))
		return payload
	}
	resp.Usage.LogCost(p.model, "explanation_polish")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return payload
	}
	payload.Reasoning = text
	return payload
}
