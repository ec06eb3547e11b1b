package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voicebox-labs/storyscout/internal/bedrock"
	"github.com/voicebox-labs/storyscout/internal/session"
	"github.com/voicebox-labs/storyscout/internal/storyblok"
)

// maxTitlesInContext caps how many previous-result titles are injected into
// the context message; the rest collapse into an overflow count.
const maxTitlesInContext = 10

// Completer is the slice of the Bedrock client the resolver needs.
type Completer interface {
	Converse(ctx context.Context, system string, messages []bedrock.Message, gen bedrock.GenConfig) (string, error)
}

type Resolver struct {
	llm          Completer
	maxHistory   int
	defaultLimit int
	logger       *slog.Logger
}

func NewResolver(llm Completer, maxHistory, defaultLimit int, logger *slog.Logger) *Resolver {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Resolver{llm: llm, maxHistory: maxHistory, defaultLimit: defaultLimit, logger: logger}
}

// Resolve interprets one user turn into an Intent. Previous results and the
// previous analysis are injected as compact summaries so the model can ground
// references like "those" or "from these" without resending full payloads.
// Malformed model output degrades to a chat intent carrying the raw reply,
// and a reply with no text at all degrades to an error intent with an apology;
// only transport failures propagate, as bedrock.UnavailableError.
func (r *Resolver) Resolve(ctx context.Context, message string, history []bedrock.Message, prevStories []storyblok.Story, prevAnalysis *session.Analysis) (Intent, error) {
	contextMessage := buildContextMessage(message, prevStories, prevAnalysis)

	if len(history) > r.maxHistory {
		history = history[len(history)-r.maxHistory:]
	}

	messages := make([]bedrock.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, bedrock.Message{Role: "user", Content: contextMessage})

	raw, err := r.llm.Converse(ctx, systemPrompt, messages, bedrock.GenConfig{
		MaxTokens:   2048,
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		if errors.Is(err, bedrock.ErrNoTextContent) {
			r.logger.Error("model reply carried no text content", "error", err)
			return errorFallback(r.defaultLimit), nil
		}
		return Intent{}, err
	}

	it := decode(raw, r.defaultLimit)
	r.logger.Info("resolved intent",
		"action", string(it.Action),
		"term", it.Term,
		"filter_term", it.FilterTerm,
		"limit", it.Limit,
		"content_type", it.ContentType,
	)
	return it, nil
}

func buildContextMessage(message string, prevStories []storyblok.Story, prevAnalysis *session.Analysis) string {
	var b strings.Builder
	b.WriteString(message)

	if len(prevStories) > 0 {
		titles := make([]string, 0, maxTitlesInContext)
		for i, s := range prevStories {
			if i >= maxTitlesInContext {
				break
			}
			name := s.Name
			if name == "" {
				name = "Unknown"
			}
			titles = append(titles, name)
		}
		fmt.Fprintf(&b, "\n\n[CONTEXT: Previous search returned %d stories. Story titles: %s",
			len(prevStories), strings.Join(titles, ", "))
		if len(prevStories) > maxTitlesInContext {
			fmt.Fprintf(&b, " and %d more", len(prevStories)-maxTitlesInContext)
		}
		b.WriteString("]")
	}

	if prevAnalysis != nil {
		desc := prevAnalysis.Description
		if desc == "" {
			desc = "Analysis performed"
		}
		fmt.Fprintf(&b, "\n\n[PREVIOUS ANALYSIS: %s. Count: %d items]", desc, prevAnalysis.Count)
	}

	return b.String()
}

type wireIntent struct {
	Action       string   `json:"action"`
	Term         string   `json:"term"`
	FilterTerm   string   `json:"filter_term"`
	Limit        int      `json:"limit"`
	ContentType  string   `json:"content_type"`
	AnalysisType string   `json:"analysis_type"`
	ClarifyField string   `json:"clarify_field"`
	Options      []string `json:"options"`
	Response     string   `json:"response"`
}

// decode parses the model's reply into an Intent. The reply is expected to
// contain exactly one JSON object; the substring from the first "{" to the
// last "}" is decoded strictly. Anything unparseable falls back to a chat
// intent with the raw reply as the displayable response.
func decode(raw string, defaultLimit int) Intent {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return chatFallback(raw, defaultLimit)
	}

	var w wireIntent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &w); err != nil {
		return chatFallback(raw, defaultLimit)
	}

	action := Action(w.Action)
	if !knownActions[action] {
		action = ActionChat
	}

	limit := w.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	response := w.Response
	if response == "" {
		response = raw
	}

	return Intent{
		Action:       action,
		Term:         w.Term,
		FilterTerm:   w.FilterTerm,
		Limit:        limit,
		ContentType:  w.ContentType,
		AnalysisType: w.AnalysisType,
		ClarifyField: w.ClarifyField,
		Options:      w.Options,
		Response:     response,
		Raw:          raw,
	}
}

func chatFallback(raw string, defaultLimit int) Intent {
	return Intent{
		Action:   ActionChat,
		Limit:    defaultLimit,
		Response: raw,
		Raw:      raw,
	}
}

// errorFallback is the intent produced when the model returned nothing usable
// at all; the turn still completes with an apology instead of failing.
func errorFallback(defaultLimit int) Intent {
	return Intent{
		Action:   ActionError,
		Limit:    defaultLimit,
		Response: "I apologize, but I couldn't generate a response. Please try again.",
	}
}
