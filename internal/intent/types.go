package intent

// Action is the structured action the model chose for a turn.
type Action string

const (
	ActionSearch       Action = "search"
	ActionRefine       Action = "refine"
	ActionAnalyze      Action = "analyze"
	ActionListAnalyzed Action = "list_analyzed"
	ActionClarify      Action = "clarify"
	ActionChat         Action = "chat"
	ActionError        Action = "error"
)

// DefaultLimit is the result limit of last resort, used when neither the
// model nor the configured default supplies a positive one.
const DefaultLimit = 10

// Intent is the typed outcome of interpreting one user turn. Exactly one
// Action is active; the remaining fields are meaningful only for the actions
// that declare them.
type Intent struct {
	Action       Action
	Term         string
	FilterTerm   string
	Limit        int
	ContentType  string
	AnalysisType string
	ClarifyField string
	Options      []string

	// Response is the human-readable reply meant for direct display.
	Response string
	// Raw is the unparsed model output, kept for logging.
	Raw string
}

var knownActions = map[Action]bool{
	ActionSearch:       true,
	ActionRefine:       true,
	ActionAnalyze:      true,
	ActionListAnalyzed: true,
	ActionClarify:      true,
	ActionChat:         true,
	ActionError:        true,
}
