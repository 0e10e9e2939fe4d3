package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkwell-editor/inkwell/docsync"
	"github.com/inkwell-editor/inkwell/editor"
	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/tree"
)

// NewServeCmd runs a local server exposing the sync engine to a browser
// editing surface over a websocket plus a small JSON API.
func NewServeCmd() *cobra.Command {
	var repoFlag string
	var addrFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing surface for a browser editor",
		Long: `Serve binds a websocket editing surface and a JSON control API on a
local address. A browser editor connects to /ws for content exchange and
drives open/save/tree operations through /api.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := NewApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if _, err := app.RequireSession(ctx); err != nil {
				return app.Errors.Handle(err)
			}

			owner, name, err := resolveRepo(app, repoFlag)
			if err != nil {
				return app.Errors.Handle(err)
			}

			addr := addrFlag
			if addr == "" {
				addr = app.Config.Editor.ListenAddr
			}

			srv, err := newDocServer(app, owner, name)
			if err != nil {
				return app.Errors.Handle(err)
			}
			defer srv.Close()

			bindCtx, stopBind := context.WithCancel(ctx)
			defer stopBind()
			go editor.Bind(bindCtx, srv.bridge, srv.engine)

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				httpSrv.Shutdown(shutCtx)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s/%s on http://%s (websocket at /ws)\n", owner, name, addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return app.Errors.Handle(errors.Wrap(err, errors.ErrCodeInternal, "server failed"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoFlag, "repo", "r", "", "repository as owner/name (defaults to the last one used)")
	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (defaults to editor.listen_addr)")
	return cmd
}

// docServer wires one engine, one websocket bridge, and one tree cache to
// HTTP handlers. Discard confirmation is gated by the request's "discard"
// flag rather than an interactive prompt, and the untitled save path is
// stashed from the save request body for the engine's resolver to pick up.
type docServer struct {
	app    *App
	engine *docsync.Engine
	bridge *editor.WSBridge
	cache  *tree.Cache

	mu       sync.Mutex
	savePath string
}

func newDocServer(app *App, owner, name string) (*docServer, error) {
	cache := tree.NewCache(app.API(), app.Sessions.HasScope)
	cache.Select(owner, name, app.Config.Provider.CommitBranch)

	s := &docServer{
		app:    app,
		bridge: editor.NewWSBridge(),
		cache:  cache,
	}
	s.engine = docsync.NewEngine(docsync.Options{
		Remote: &docsync.GitHubRemote{
			API:     app.API(),
			Owner:   owner,
			Repo:    name,
			Branch:  app.Config.Provider.CommitBranch,
			Message: app.Config.Provider.CommitMessage,
		},
		HasSession: func() bool { return app.Sessions.Current() != nil },
		Resolvers: docsync.Resolvers{
			// Open/new handlers refuse up front unless discard was
			// requested, so by the time the engine asks the answer is yes.
			ConfirmDiscard: func(ctx context.Context, path string) (bool, error) {
				return true, nil
			},
			PromptSavePath: func(ctx context.Context) (string, error) {
				return s.takeSavePath(), nil
			},
		},
		OnTreeRefresh: func() {
			app.Log.Debug("Document created; clients should reload the tree")
		},
	})
	return s, nil
}

func (s *docServer) Close() error {
	return s.bridge.Close()
}

func (s *docServer) takeSavePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.savePath
	s.savePath = ""
	return path
}

func (s *docServer) stashSavePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savePath = path
}

func (s *docServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.bridge.Handler())
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/repos", s.handleRepos)
	mux.HandleFunc("/api/tree", s.handleTree)
	mux.HandleFunc("/api/open", s.handleOpen)
	mux.HandleFunc("/api/save", s.handleSave)
	mux.HandleFunc("/api/new", s.handleNew)
	return mux
}

type stateResponse struct {
	State  string              `json:"state"`
	Active *docsync.ActiveFile `json:"active,omitempty"`
}

func (s *docServer) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		State:  s.engine.State().String(),
		Active: s.engine.Active(),
	})
}

func (s *docServer) handleRepos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	repos, err := s.cache.ListRepositories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

type treeEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

func (s *docServer) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.Trim(r.URL.Query().Get("path"), "/")

	children, err := s.cache.Expand(r.Context(), path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entries := make([]treeEntry, 0, len(children))
	for _, child := range children {
		entries = append(entries, treeEntry{Name: child.Name, Path: child.Path, Kind: string(child.Kind)})
	}
	writeJSON(w, http.StatusOK, entries)
}

type openRequest struct {
	Path    string `json:"path"`
	Discard bool   `json:"discard"`
}

func (s *docServer) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid request body"))
		return
	}
	req.Path = strings.Trim(req.Path, "/")
	if req.Path == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "path is required"))
		return
	}
	if s.engine.WouldDiscard() && !req.Discard {
		s.writeError(w, errors.New(errors.ErrCodeConflictDetected,
			"unsaved changes would be lost; repeat with discard=true"))
		return
	}

	node, err := lookupFile(r.Context(), s.cache, req.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.OpenFile(r.Context(), node); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.bridge.SetContent(r.Context(), s.engine.Content(), true); err != nil {
		s.app.Log.WithError(err).Debug("No editing surface connected yet")
	}
	writeJSON(w, http.StatusOK, stateResponse{
		State:  s.engine.State().String(),
		Active: s.engine.Active(),
	})
}

type saveRequest struct {
	// Path names the destination for an untitled document. Ignored when the
	// document already has one.
	Path string `json:"path,omitempty"`
}

func (s *docServer) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req saveRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	s.stashSavePath(strings.Trim(req.Path, "/"))

	if err := s.engine.Save(r.Context(), s.engine.Content()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{
		State:  s.engine.State().String(),
		Active: s.engine.Active(),
	})
}

type newRequest struct {
	Discard bool `json:"discard"`
}

func (s *docServer) handleNew(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req newRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	if s.engine.WouldDiscard() && !req.Discard {
		s.writeError(w, errors.New(errors.ErrCodeConflictDetected,
			"unsaved changes would be lost; repeat with discard=true"))
		return
	}

	s.engine.Discard()
	s.engine.UpdateContent("")
	if err := s.bridge.SetContent(r.Context(), "", true); err != nil {
		s.app.Log.WithError(err).Debug("No editing surface connected yet")
	}
	writeJSON(w, http.StatusOK, stateResponse{
		State:  s.engine.State().String(),
		Active: s.engine.Active(),
	})
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *docServer) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == errors.ErrCodeAuthExpired {
		// A rejected credential ends the session immediately; the client's
		// next save will hit the reauthentication path instead of a 401 loop.
		s.app.Sessions.Invalidate()
	}

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeAuthExpired, errors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeConflictDetected, errors.ErrCodeNameConflict:
		status = http.StatusConflict
	case errors.ErrCodeSaveCancelled:
		status = http.StatusBadRequest
	case errors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}

	var resp errorResponse
	resp.Error.Code = string(code)
	resp.Error.Message = err.Error()
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
