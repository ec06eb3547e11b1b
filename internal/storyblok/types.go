package storyblok

import "encoding/json"

// Story is a single search hit from the Strata vsearches endpoint.
type Story struct {
	Body        string `json:"body"`
	Cursor      int    `json:"cursor"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	StoryID     int64  `json:"story_id"`
	ContentType string `json:"content_type,omitempty"`

	// FullStory is the complete content document, attached lazily when the
	// orchestrator enriches previews. Nil until then.
	FullStory json.RawMessage `json:"full_story,omitempty"`
}

// SearchResults holds one search's hits. Total always equals len(Stories):
// after any local filtering it reflects the filtered count, never the
// backend's unfiltered one.
type SearchResults struct {
	Stories []Story `json:"stories"`
	Total   int     `json:"total"`
}
