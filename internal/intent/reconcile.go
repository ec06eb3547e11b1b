package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicebox-labs/storyscout/internal/bedrock"
)

// Reconciler maps a user's informal content-type phrase to one of the labels
// actually present in a result set. It is consulted opportunistically; the
// orchestrator's primary filtering uses substring matching and works without
// it.
type Reconciler struct {
	llm    Completer
	logger *slog.Logger
}

func NewReconciler(llm Completer, logger *slog.Logger) *Reconciler {
	return &Reconciler{llm: llm, logger: logger}
}

// MapContentType returns the best matching label from available, or "" when
// there is none. An exact member match short-circuits without a model call.
// Model failures are non-fatal and also yield "".
func (rc *Reconciler) MapContentType(ctx context.Context, requested string, available []string) string {
	if len(available) == 0 {
		return ""
	}
	for _, label := range available {
		if label == requested {
			return requested
		}
	}

	prompt := fmt.Sprintf(mapContentTypePrompt, requested, strings.Join(available, ", "))

	reply, err := rc.llm.Converse(ctx, "", []bedrock.Message{{Role: "user", Content: prompt}}, bedrock.GenConfig{
		MaxTokens:   50,
		Temperature: 0.3,
	})
	if err != nil {
		rc.logger.Error("content type mapping failed", "requested", requested, "error", err)
		return ""
	}

	reply = strings.TrimSpace(reply)
	for _, label := range available {
		if reply == label {
			rc.logger.Info("mapped content type", "requested", requested, "mapped", reply)
			return reply
		}
	}
	if !strings.EqualFold(reply, "none") {
		rc.logger.Warn("model returned label outside available set", "requested", requested, "reply", reply)
	}
	return ""
}
