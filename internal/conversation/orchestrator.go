package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/voicebox-labs/storyscout/internal/audit"
	"github.com/voicebox-labs/storyscout/internal/bedrock"
	"github.com/voicebox-labs/storyscout/internal/events"
	"github.com/voicebox-labs/storyscout/internal/intent"
	"github.com/voicebox-labs/storyscout/internal/session"
	"github.com/voicebox-labs/storyscout/internal/storyblok"
)

// analyzeSearchLimit is the generous internal limit used to approximate a
// count for analyze turns.
const analyzeSearchLimit = 100

// Request is one inbound conversational turn. The caller resends the full
// history every turn and assigns no session id.
type Request struct {
	Message             string            `json:"message"`
	ConversationHistory []bedrock.Message `json:"conversation_history"`
}

// Response is the turn's outcome. Results and Analysis communicate which
// behavior actually executed.
type Response struct {
	Message        string                   `json:"message"`
	Results        *storyblok.SearchResults `json:"results,omitempty"`
	Action         string                   `json:"action"`
	Analysis       *session.Analysis        `json:"analysis,omitempty"`
	ClarifyField   string                   `json:"clarify_field,omitempty"`
	Options        []string                 `json:"options,omitempty"`
	ConversationID string                   `json:"conversation_id,omitempty"`
}

// Resolver interprets one turn into an Intent.
type Resolver interface {
	Resolve(ctx context.Context, message string, history []bedrock.Message, prevStories []storyblok.Story, prevAnalysis *session.Analysis) (intent.Intent, error)
}

// Searcher is the slice of the Storyblok client the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, term string, limit, offset int) (storyblok.SearchResults, error)
	GetStory(ctx context.Context, storyID int64) (json.RawMessage, error)
}

// Reconciler maps a requested content-type label to one actually present in
// a result set.
type Reconciler interface {
	MapContentType(ctx context.Context, requested string, available []string) string
}

// Orchestrator executes one conversational turn: resolve the intent, run
// exactly one of the six behaviors, update session state, and report. The
// events publisher and audit store are optional; the service runs without
// either.
type Orchestrator struct {
	resolver   Resolver
	search     Searcher
	sessions   *session.Store
	reconciler Reconciler
	events     *events.Publisher
	audit      *audit.Store
	nluSlots   *semaphore.Weighted
	timeout    time.Duration
	logger     *slog.Logger
}

func New(resolver Resolver, search Searcher, sessions *session.Store, reconciler Reconciler, ev *events.Publisher, aud *audit.Store, nluWorkers int, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if nluWorkers <= 0 {
		nluWorkers = 10
	}
	return &Orchestrator{
		resolver:   resolver,
		search:     search,
		sessions:   sessions,
		reconciler: reconciler,
		events:     ev,
		audit:      aud,
		nluSlots:   semaphore.NewWeighted(int64(nluWorkers)),
		timeout:    timeout,
		logger:     logger,
	}
}

// HandleTurn processes one turn. The only hard failure is an NLU transport
// error (bedrock.UnavailableError); search backend failures degrade to an
// apology suffix on the conversational message.
func (o *Orchestrator) HandleTurn(ctx context.Context, req Request) (Response, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	key := session.DeriveKey(firstUserMessage(req))
	prevStories, _ := o.sessions.Results(key)
	prevAnalysis, _ := o.sessions.Analysis(key)

	it, err := o.resolveBounded(ctx, req, prevStories, prevAnalysis)
	if err != nil {
		return Response{}, err
	}

	var resp Response
	switch it.Action {
	case intent.ActionClarify:
		resp = o.handleClarify(it)
	case intent.ActionAnalyze:
		resp = o.handleAnalyze(ctx, key, it)
	case intent.ActionListAnalyzed:
		resp = o.handleListAnalyzed(it, prevStories)
	case intent.ActionSearch:
		resp = o.handleSearch(ctx, key, it)
	case intent.ActionRefine:
		resp = o.handleRefine(key, it, prevStories)
	default:
		resp = Response{Message: it.Response, Action: string(it.Action)}
	}

	resp.ConversationID = key
	o.record(ctx, key, it, resp)
	return resp, nil
}

// resolveBounded dispatches the blocking model call through the worker
// semaphore so one slow call cannot stall unrelated requests.
func (o *Orchestrator) resolveBounded(ctx context.Context, req Request, prevStories []storyblok.Story, prevAnalysis *session.Analysis) (intent.Intent, error) {
	if err := o.nluSlots.Acquire(ctx, 1); err != nil {
		return intent.Intent{}, &bedrock.UnavailableError{Reason: bedrock.ReasonConnectivity, Err: err}
	}
	defer o.nluSlots.Release(1)
	return o.resolver.Resolve(ctx, req.Message, req.ConversationHistory, prevStories, prevAnalysis)
}

func (o *Orchestrator) handleClarify(it intent.Intent) Response {
	return Response{
		Message:      it.Response,
		Action:       string(intent.ActionClarify),
		ClarifyField: it.ClarifyField,
		Options:      it.Options,
	}
}

func (o *Orchestrator) handleSearch(ctx context.Context, key string, it intent.Intent) Response {
	if it.Term == "" {
		o.logger.Warn("search intent without term", "session", key)
		return Response{
			Message: "I'm not sure what to search for. Could you rephrase that?",
			Action:  string(intent.ActionSearch),
		}
	}

	results, err := o.search.Search(ctx, it.Term, it.Limit, 0)
	if err != nil {
		o.logger.Error("search failed", "term", it.Term, "error", err)
		return Response{
			Message: it.Response + "\n\nI encountered an issue searching for content. Please try again.",
			Action:  string(intent.ActionSearch),
		}
	}

	o.enrichStories(ctx, results.Stories)

	filtered := o.filterByContentType(ctx, results.Stories, it.ContentType)
	results.Stories = filtered
	results.Total = len(filtered)

	o.sessions.SetResults(key, filtered)

	message := it.Response
	if results.Total == 0 {
		message += "\n\nI couldn't find any matching content. Would you like to try a different search?"
	}

	return Response{
		Message: message,
		Results: &results,
		Action:  string(intent.ActionSearch),
	}
}

func (o *Orchestrator) handleAnalyze(ctx context.Context, key string, it intent.Intent) Response {
	if it.Term == "" {
		o.logger.Warn("analyze intent without term", "session", key)
		return Response{
			Message: "I'm not sure what you'd like me to count. Could you rephrase that?",
			Action:  string(intent.ActionAnalyze),
		}
	}

	results, err := o.search.Search(ctx, it.Term, analyzeSearchLimit, 0)
	if err != nil {
		o.logger.Error("analyze search failed", "term", it.Term, "error", err)
		return Response{
			Message: it.Response + "\n\nI encountered an issue searching for content. Please try again.",
			Action:  string(intent.ActionAnalyze),
		}
	}

	filtered := o.filterByContentType(ctx, results.Stories, it.ContentType)
	count := len(filtered)

	label := pluralLabel(it.ContentType)
	description := fmt.Sprintf("Analyzed %s", it.Term)
	if it.ContentType != "" {
		description = fmt.Sprintf("Analyzed %s (%s)", it.Term, it.ContentType)
	}
	analysisType := it.AnalysisType
	if analysisType == "" {
		analysisType = "count"
	}
	analysis := &session.Analysis{
		Description:  description,
		Count:        count,
		SearchTerm:   it.Term,
		ContentType:  it.ContentType,
		AnalysisType: analysisType,
	}

	// Zero-count analyze still overwrites the stored set (with empty), so a
	// stale previous result set cannot leak into a follow-up list request.
	o.sessions.SetResults(key, filtered)
	o.sessions.SetAnalysis(key, analysis)

	var message string
	if count > 0 {
		message = fmt.Sprintf("I found %d %s that mention %s. Would you like me to list them?", count, label, it.Term)
	} else {
		message = fmt.Sprintf("I couldn't find any %s that mention %s.", label, it.Term)
	}

	return Response{
		Message:  message,
		Action:   string(intent.ActionAnalyze),
		Analysis: analysis,
	}
}

func (o *Orchestrator) handleListAnalyzed(it intent.Intent, prevStories []storyblok.Story) Response {
	if len(prevStories) == 0 {
		return Response{
			Message: "I don't have any analyzed results to list. Try asking me to search or count something first.",
			Action:  string(intent.ActionListAnalyzed),
		}
	}

	listed := prevStories
	if it.Limit > 0 && it.Limit < len(listed) {
		listed = listed[:it.Limit]
	}

	return Response{
		Message: it.Response,
		Results: &storyblok.SearchResults{Stories: listed, Total: len(listed)},
		Action:  string(intent.ActionListAnalyzed),
	}
}

func (o *Orchestrator) handleRefine(key string, it intent.Intent, prevStories []storyblok.Story) Response {
	if it.FilterTerm == "" {
		o.logger.Warn("refine intent without filter term", "session", key)
		return Response{
			Message: "What should I filter the previous results by?",
			Action:  string(intent.ActionRefine),
		}
	}
	if len(prevStories) == 0 {
		return Response{
			Message: "I don't have any previous results to filter. Try a search first.",
			Action:  string(intent.ActionRefine),
		}
	}

	needle := strings.ToLower(it.FilterTerm)
	matched := make([]storyblok.Story, 0, len(prevStories))
	for _, s := range prevStories {
		haystack := strings.ToLower(s.Name + " " + s.Body + " " + s.Slug)
		if strings.Contains(haystack, needle) {
			matched = append(matched, s)
		}
	}

	message := it.Response
	if len(matched) > 0 {
		o.sessions.SetResults(key, matched)
	} else {
		// An over-narrow refine keeps the broader stored set available for
		// another attempt; only the returned set is empty.
		message = fmt.Sprintf("None of the previous results mention %q. The original results are still available if you'd like to filter differently.", it.FilterTerm)
	}

	return Response{
		Message: message,
		Results: &storyblok.SearchResults{Stories: matched, Total: len(matched)},
		Action:  string(intent.ActionRefine),
	}
}

// enrichStories attaches the full content document to each story and fills
// in a missing content-type label from the document's component. Best-effort:
// per-record failures are skipped.
func (o *Orchestrator) enrichStories(ctx context.Context, stories []storyblok.Story) {
	for i := range stories {
		full, err := o.search.GetStory(ctx, stories[i].StoryID)
		if err != nil {
			o.logger.Warn("could not fetch full story", "story_id", stories[i].StoryID, "error", err)
			continue
		}
		stories[i].FullStory = full
		if stories[i].ContentType == "" {
			stories[i].ContentType = componentOf(full)
		}
	}
}

func componentOf(doc json.RawMessage) string {
	var parsed struct {
		Content struct {
			Component string `json:"component"`
		} `json:"content"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return ""
	}
	return parsed.Content.Component
}

// filterByContentType keeps stories whose label case-insensitively contains
// the requested one. When no record carries a populated label the filter
// cannot be honored and is skipped entirely, leaving the set untouched.
func (o *Orchestrator) filterByContentType(ctx context.Context, stories []storyblok.Story, requested string) []storyblok.Story {
	if requested == "" || len(stories) == 0 {
		return stories
	}

	available := distinctContentTypes(stories)
	if len(available) == 0 {
		o.logger.Warn("content type filter skipped: no records carry a content type label", "requested", requested)
		return stories
	}

	label := requested
	if o.reconciler != nil {
		if mapped := o.reconciler.MapContentType(ctx, requested, available); mapped != "" {
			label = mapped
		}
	}

	needle := strings.ToLower(label)
	filtered := make([]storyblok.Story, 0, len(stories))
	for _, s := range stories {
		if s.ContentType != "" && strings.Contains(strings.ToLower(s.ContentType), needle) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func distinctContentTypes(stories []storyblok.Story) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range stories {
		if s.ContentType != "" && !seen[s.ContentType] {
			seen[s.ContentType] = true
			out = append(out, s.ContentType)
		}
	}
	return out
}

func pluralLabel(contentType string) string {
	if contentType == "" {
		return "stories"
	}
	if strings.HasSuffix(contentType, "s") {
		return contentType
	}
	return contentType + "s"
}

// firstUserMessage picks the message the session key derives from: the first
// user turn in history, or the current message when history is empty.
func firstUserMessage(req Request) string {
	for _, m := range req.ConversationHistory {
		if m.Role == "user" {
			return m.Content
		}
	}
	return req.Message
}

// record emits best-effort telemetry for the turn; failures are logged and
// never affect the response.
func (o *Orchestrator) record(ctx context.Context, key string, it intent.Intent, resp Response) {
	resultCount := 0
	if resp.Results != nil {
		resultCount = resp.Results.Total
	}

	if o.events != nil {
		evt := events.TurnEvent{
			TurnID:      uuid.New(),
			SessionKey:  key,
			Action:      resp.Action,
			Term:        it.Term,
			ResultCount: resultCount,
		}
		if err := o.events.PublishTurn(evt); err != nil {
			o.logger.Warn("failed to publish turn event", "error", err)
		}
	}

	if o.audit != nil {
		turn := audit.Turn{
			ID:          uuid.New(),
			SessionKey:  key,
			Action:      resp.Action,
			Term:        it.Term,
			FilterTerm:  it.FilterTerm,
			ResultCount: resultCount,
		}
		if err := o.audit.RecordTurn(ctx, turn); err != nil {
			o.logger.Warn("failed to record turn", "error", err)
		}
	}
}
