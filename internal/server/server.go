// Package server provides the GitScribe HTTP API server.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gitscribe/gitscribe/internal/config"
	"github.com/gitscribe/gitscribe/internal/repostore"
	"github.com/gitscribe/gitscribe/pkg/eventbus"
	"github.com/gitscribe/gitscribe/pkg/llm"
	"github.com/gitscribe/gitscribe/pkg/model"
	"github.com/gitscribe/gitscribe/pkg/prompt"
	"github.com/gitscribe/gitscribe/pkg/toolflow"
)

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store    *repostore.Store
	Bus      eventbus.Bus
	Prompts  *prompt.Builder
	LLM      llm.Client
	Executor *toolflow.Executor
	// Tools are the definitions advertised to the LLM on chat requests.
	Tools []llm.Tool
}

// Server is the GitScribe HTTP API server.
type Server struct {
	config *config.Config
	deps   Deps
	router chi.Router
}

// New creates a new Server with the given dependencies.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{config: cfg, deps: deps}
	s.router = s.buildRouter()
	return s
}

// Handler returns the HTTP handler, used directly by tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("GitScribe server listening on %s", s.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/repositories", s.handleListRepositories)
		r.Post("/repositories", s.handleRegisterRepository)
		r.Get("/repositories/{service}/{owner}/{repo}/operations", s.handleListOperations)
		r.Get("/events", s.handleEvents)
	})

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type documentPayload struct {
	Title string `json:"title,omitempty"`
	Path  string `json:"path"`
	Size  int64  `json:"size,omitempty"`
}

type chatRequest struct {
	Prompt            string           `json:"prompt"`
	History           []llm.Message    `json:"history,omitempty"`
	RepositoryContext map[string]any   `json:"repository_context,omitempty"`
	Document          *documentPayload `json:"document,omitempty"`
	DocumentContent   string           `json:"document_content,omitempty"`
	TemplateID        string           `json:"template_id,omitempty"`
}

type chatResponse struct {
	Content     string            `json:"content"`
	ToolResults []toolflow.Record `json:"tool_results,omitempty"`
	Usage       llm.Usage         `json:"usage"`
	Template    string            `json:"template"`
}

type registerRepositoryRequest struct {
	Service string `json:"service"`
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Ref     string `json:"ref,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "no LLM client configured (set ANTHROPIC_API_KEY or OPENAI_API_KEY)")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	var repoCtx *model.RepositoryContext
	if req.RepositoryContext != nil {
		ctx, err := model.ContextFromMap(req.RepositoryContext)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid repository context: %v", err))
			return
		}
		repoCtx = ctx
	}

	var doc *model.DocumentMetadata
	if req.Document != nil && req.Document.Path != "" {
		meta, err := model.DocumentFromPath(req.Document.Path, req.Document.Size)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid document: %v", err))
			return
		}
		meta.Title = req.Document.Title
		doc = meta
	}

	templateID := prompt.TemplateID(req.TemplateID)
	if templateID == "" {
		templateID = prompt.SelectTemplate(repoCtx, doc)
	}
	system := s.deps.Prompts.BuildSystemPrompt(repoCtx, doc, req.DocumentContent, templateID)

	llmReq := llm.Request{
		SystemPrompt: system,
		History:      req.History,
		Prompt:       req.Prompt,
		Tools:        s.deps.Tools,
		ToolChoice:   llm.ToolChoiceAuto,
	}
	resp, err := s.deps.LLM.Chat(r.Context(), llmReq)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("LLM call failed: %v", err))
		return
	}

	var records []toolflow.Record
	if len(resp.ToolCalls) > 0 {
		records = s.deps.Executor.HandleToolCalls(r.Context(), llmReq, resp, repoCtx)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Content:     resp.Content,
		ToolResults: records,
		Usage:       resp.Usage,
		Template:    string(templateID),
	})
}

func (s *Server) handleRegisterRepository(w http.ResponseWriter, r *http.Request) {
	var req registerRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	service, err := model.ParseService(req.Service)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Validate names through the same rules the tool layer enforces.
	if _, err := model.NewRepositoryContext(service, req.Owner, req.Repo, req.Ref, "", req.BaseURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo := &repostore.Repository{
		Service: string(service),
		Owner:   req.Owner,
		Repo:    req.Repo,
		Ref:     req.Ref,
		BaseURL: req.BaseURL,
	}
	if err := s.deps.Store.UpsertRepository(repo); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("saving repository: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.deps.Store.ListRepositories()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("listing repositories: %v", err))
		return
	}
	if repos == nil {
		repos = []*repostore.Repository{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	if _, err := s.deps.Store.GetRepository(service, owner, repo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "repository not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("loading repository: %v", err))
		return
	}

	ops, err := s.deps.Store.ListOperations(owner+"/"+repo, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("listing operations: %v", err))
		return
	}
	if ops == nil {
		ops = []*repostore.Operation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

// handleEvents streams Git operation events for one repository over SSE.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	repository := r.URL.Query().Get("repository")
	if repository == "" {
		writeError(w, http.StatusBadRequest, "repository query parameter is required")
		return
	}

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	flusher.Flush()

	ch := s.deps.Bus.Subscribe(repository)
	defer s.deps.Bus.Unsubscribe(repository, ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event *eventbus.Event) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, string(data))
}
