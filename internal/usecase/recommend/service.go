package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FallbackResponse is returned whenever generation fails. Recommendation is
// advisory only, so this call site never hard-fails on the upstream model.
const FallbackResponse = "AI recommendations temporarily unavailable. Please try again later."

// Service turns an asset's health context into an operator-facing
// recommendation via the generation gateway.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Ask answers a free-form operator question about an asset, grounded in the
// asset's current health context. A generation failure degrades to
// FallbackResponse, never an error.
func (s *Service) Ask(ctx context.Context, question string, asset *domain.Asset) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}

	text, err := s.gen.Generate(ctx, buildPrompt(question, asset))
	if err != nil {
		s.logger.Warn("recommendation generation failed, using fallback", zap.Error(err))
		return FallbackResponse, nil
	}
	return text, nil
}

// buildPrompt composes the advisor persona prompt with the asset context.
func buildPrompt(question string, asset *domain.Asset) string {
	var b strings.Builder
	b.WriteString("You are Klaudia, the operations manager of SaveALife, an organ transport monitoring service.\n")
	b.WriteString("Answer the operator's question using the asset context below. Be brief and actionable.\n\n")

	if asset != nil {
		fmt.Fprintf(&b, "Asset: %s (%s)\n", asset.Name, asset.Type)
		fmt.Fprintf(&b, "Status: %s\n", asset.Status)
		fmt.Fprintf(&b, "Health score: %d/100\n", asset.HealthScore())
		if asset.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", asset.Location)
		}
		if len(asset.Alerts) > 0 {
			b.WriteString("Recent alerts:\n")
			for _, a := range asset.Alerts {
				fmt.Fprintf(&b, "- [%s] %s\n", a.Severity, a.Message)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
