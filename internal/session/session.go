package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/voicebox-labs/storyscout/internal/storyblok"
)

// DeriveKey maps a conversation to a stable session key using the first user
// message. The caller resends full history each turn and assigns no explicit
// session id, so this is the only stable handle across a multi-turn exchange.
// Known weakness: two unrelated conversations opening with an identical first
// message share a key.
func DeriveKey(firstUserMessage string) string {
	sum := sha256.Sum256([]byte(firstUserMessage))
	return hex.EncodeToString(sum[:8])
}

// Analysis summarizes the most recent analyze turn for a conversation.
type Analysis struct {
	Description  string `json:"description"`
	Count        int    `json:"count"`
	SearchTerm   string `json:"search_term"`
	ContentType  string `json:"content_type,omitempty"`
	AnalysisType string `json:"analysis_type,omitempty"`
}

// Store holds per-conversation state for the lifetime of the process: the
// previous turn's result set and the previous analysis summary. Entries are
// never evicted. Concurrent turns for the same key are last-write-wins.
type Store struct {
	mu       sync.Mutex
	results  map[string][]storyblok.Story
	analyses map[string]*Analysis
}

func NewStore() *Store {
	return &Store{
		results:  make(map[string][]storyblok.Story),
		analyses: make(map[string]*Analysis),
	}
}

// Results returns a copy of the stored result set for key, if any.
func (s *Store) Results(key string) ([]storyblok.Story, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stories, ok := s.results[key]
	if !ok {
		return nil, false
	}
	out := make([]storyblok.Story, len(stories))
	copy(out, stories)
	return out, true
}

func (s *Store) SetResults(key string, stories []storyblok.Story) {
	stored := make([]storyblok.Story, len(stories))
	copy(stored, stories)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = stored
}

func (s *Store) Analysis(key string) (*Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[key]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

func (s *Store) SetAnalysis(key string, a *Analysis) {
	cp := *a
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[key] = &cp
}
