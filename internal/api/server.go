package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/voicebox-labs/storyscout/internal/bedrock"
	"github.com/voicebox-labs/storyscout/internal/conversation"
	"github.com/voicebox-labs/storyscout/internal/intent"
	"github.com/voicebox-labs/storyscout/internal/storyblok"
)

const serviceVersion = "1.0.0"

// TurnHandler processes one conversational turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req conversation.Request) (conversation.Response, error)
}

// StoryBackend serves the story-detail lookup endpoint and the debug search
// probe.
type StoryBackend interface {
	GetStory(ctx context.Context, storyID int64) (json.RawMessage, error)
	Search(ctx context.Context, term string, limit, offset int) (storyblok.SearchResults, error)
}

type Config struct {
	Port        int
	CORSOrigins []string
	StaticDir   string
	Debug       bool
}

type Server struct {
	router  *chi.Mux
	cfg     Config
	turns   TurnHandler
	stories StoryBackend
	llm     intent.Completer
	logger  *slog.Logger
}

func NewServer(cfg Config, turns TurnHandler, stories StoryBackend, llm intent.Completer, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	s := &Server{
		router:  router,
		cfg:     cfg,
		turns:   turns,
		stories: stories,
		llm:     llm,
		logger:  logger,
	}

	router.Get("/", s.health)
	router.Get("/health", s.health)
	router.Post("/api/conversation", s.conversation)
	router.Get("/api/story/{storyID}", s.story)

	if cfg.Debug {
		router.Get("/api/test-bedrock", s.testBedrock)
		router.Get("/api/test-storyblok", s.testStoryblok)
	}

	if cfg.StaticDir != "" {
		fs := http.StripPrefix("/frontend/", http.FileServer(http.Dir(cfg.StaticDir)))
		router.Handle("/frontend/*", fs)
	}

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storyscout",
		"version": serviceVersion,
	})
}

func (s *Server) conversation(w http.ResponseWriter, r *http.Request) {
	var req conversation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required", nil)
		return
	}

	resp, err := s.turns.HandleTurn(r.Context(), req)
	if err != nil {
		if bedrock.IsUnavailable(err) {
			s.writeError(w, http.StatusServiceUnavailable, "Unable to connect to AI service", err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) story(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "storyID"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "story id must be an integer", err)
		return
	}

	doc, err := s.stories.GetStory(r.Context(), id)
	if err != nil {
		if errors.Is(err, storyblok.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("story %d not found", id), nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "error fetching story", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"story":  doc,
	})
}

func (s *Server) testBedrock(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil {
		s.writeError(w, http.StatusServiceUnavailable, "bedrock client not configured", nil)
		return
	}
	reply, err := s.llm.Converse(r.Context(), "", []bedrock.Message{
		{Role: "user", Content: "Hello, can you help me search for content?"},
	}, bedrock.GenConfig{MaxTokens: 256, Temperature: 0.7, TopP: 0.9})
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "response": reply})
}

func (s *Server) testStoryblok(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		term = "test"
	}
	results, err := s.stories.Search(r.Context(), term, 10, 0)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "results": results})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.Error("request failed", "status", status, "message", message, "error", err)
	}
	body := map[string]any{
		"error":       message,
		"status_code": status,
	}
	if err != nil && s.cfg.Debug {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
