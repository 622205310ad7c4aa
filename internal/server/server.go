// Package server exposes the note service over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paintersrp/weave/internal/auth"
	"github.com/Paintersrp/weave/internal/cache"
	"github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/services/notes"
)

// NoteService is the subset of the note service the API calls.
type NoteService interface {
	Create(ctx context.Context, owner string, d note.Draft) (note.Note, error)
	GetWithBacklinks(ctx context.Context, owner, id string) (note.Note, []note.Ref, error)
	LinkTargets(ctx context.Context, owner, selfID, content string) (map[string]string, error)
	List(ctx context.Context, f note.Filter) ([]note.Note, error)
	Update(ctx context.Context, owner, id string, u note.Update) (note.Note, error)
	Move(ctx context.Context, owner, id, folder string) (note.Note, error)
	Delete(ctx context.Context, owner, id string) error
	RenameFolder(ctx context.Context, owner, path, newName string) (notes.FolderChange, error)
	MoveFolder(ctx context.Context, owner, dragged, target string) (notes.FolderChange, error)
	DeleteFolder(ctx context.Context, owner, path string) ([]string, error)
	Graph(ctx context.Context, owner string, scope note.Scope) (graph.Graph, error)
}

// Verifier turns a bearer token into an owner id.
type Verifier interface {
	Verify(raw string) (string, error)
}

type Server struct {
	notes    NoteService
	verifier Verifier
	logger   *slog.Logger
	validate *validator.Validate
	router   *mux.Router
	previews *cache.LRU[string, preview]
}

const previewCacheSize = 256

func New(svc NoteService, verifier Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		notes:    svc,
		verifier: verifier,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		router:   mux.NewRouter(),
		previews: cache.New[string, preview](previewCacheSize),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.authenticate)

	api.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)

	api.HandleFunc("/notes", s.handleListNotes).Methods(http.MethodGet)
	api.HandleFunc("/notes", s.handleCreateNote).Methods(http.MethodPost)
	api.HandleFunc("/notes/{id}", s.handleGetNote).Methods(http.MethodGet)
	api.HandleFunc("/notes/{id}", s.handleUpdateNote).Methods(http.MethodPut)
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods(http.MethodDelete)
	api.HandleFunc("/notes/{id}/move", s.handleMoveNote).Methods(http.MethodPut)

	api.HandleFunc("/folders", s.handleRenameFolder).Methods(http.MethodPut)
	api.HandleFunc("/folders", s.handleDeleteFolder).Methods(http.MethodDelete)
	api.HandleFunc("/folders/move", s.handleMoveFolder).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Error: "route not found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Error: "method not allowed"})
	})
}

// ServeHTTP makes the server usable as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, map[string]string{"status": "ok"})
}
