package guardrails

import (
	"context"
	"strings"

	"github.com/ragline-ai/ragline/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const inputGuardSystemPrompt = `Your role is to assess user queries as valid or invalid
Allowed topics include:
1. API Development
2. FastAPI
3. Building Generative AI systems
If a topic is allowed, say 'True' otherwise say 'False'`

// InputGuard is the topical guardrail over incoming prompts
type InputGuard struct {
	backend *chatBackend
}

// NewInputGuard creates the input/topic classifier
func NewInputGuard(cfg models.GuardrailConfig) *InputGuard {
	return &InputGuard{backend: newChatBackend(cfg)}
}

// Classify decides whether the prompt's topic is allowed. External
// failures resolve via the fail-open policy, never as errors.
func (g *InputGuard) Classify(ctx context.Context, prompt string) Result {
	raw, err := g.backend.invoke(ctx, inputGuardSystemPrompt, prompt)
	if err != nil {
		allowed := g.backend.failOpen()
		timedOut := isTimeout(err)
		if timedOut {
			fiberlog.Warnf("input guardrail timed out after %s - %s request", g.backend.timeout(), allowVerb(allowed))
		} else {
			fiberlog.Errorf("input guardrail error: %v - %s request", err, allowVerb(allowed))
		}
		return Result{Allowed: allowed, Reason: err.Error(), WasTimeout: timedOut}
	}

	allowed := strings.Contains(strings.ToLower(raw), "true")
	fiberlog.Infof("input guardrail: allowed=%t, raw=%q", allowed, raw)
	return Result{Allowed: allowed, Reason: raw}
}

func allowVerb(allowed bool) string {
	if allowed {
		return "allowing"
	}
	return "blocking"
}
