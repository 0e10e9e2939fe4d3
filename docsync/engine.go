package docsync

import (
	"context"
	"sync"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/inkwell-editor/inkwell/tree"
	"github.com/sirupsen/logrus"
)

// State is the active document's position in the sync state machine.
type State int

const (
	// StateNoFile means no document is open; the surface shows placeholder
	// content.
	StateNoFile State = iota

	// StateClean means the document matches its last loaded or saved
	// snapshot.
	StateClean

	// StateDirty means the document has been edited since the snapshot.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateDirty:
		return "dirty"
	default:
		return "nofile"
	}
}

// UntitledPath is the sentinel path of a new document that has never been
// saved and so has no remote identity.
const UntitledPath = "untitled.html"

// ActiveFile identifies the one document the engine is tracking.
type ActiveFile struct {
	Path string `json:"path"`

	// SHA is the content-identity token recorded at load or save time, sent
	// with the next write as the expected remote version. Empty for an
	// unsaved new document.
	SHA string `json:"sha,omitempty"`

	// URL is the document's remote address. Empty for an unsaved new
	// document.
	URL string `json:"url,omitempty"`

	// Untitled marks a document that has never been saved.
	Untitled bool `json:"untitled,omitempty"`

	Dirty bool `json:"dirty"`
}

// Resolvers are the engine's UI-facing questions, injected as callbacks so
// the engine never owns a dialog.
type Resolvers struct {
	// ConfirmDiscard is asked before unsaved changes are thrown away.
	// Returning false cancels the operation that needed the discard.
	ConfirmDiscard func(ctx context.Context, path string) (bool, error)

	// PromptSavePath is asked for a destination when an untitled document is
	// saved. Returning "" cancels the save.
	PromptSavePath func(ctx context.Context) (string, error)

	// Reauthenticate is invoked when a save finds the session gone. The save
	// proceeds if it returns nil.
	Reauthenticate func(ctx context.Context) error
}

// Options configures an Engine.
type Options struct {
	Remote     Remote
	HasSession func() bool
	Resolvers  Resolvers

	// OnTreeRefresh fires after the first successful save of a previously
	// untitled document, so the new file appears in the tree.
	OnTreeRefresh func()
}

// Engine tracks exactly one active document and reconciles local edit state
// with the remote file identity. All operations are safe for concurrent use;
// async completions that outlive the request they answered are discarded via
// a generation counter.
type Engine struct {
	remote        Remote
	hasSession    func() bool
	resolvers     Resolvers
	onTreeRefresh func()
	log           *logrus.Entry

	mu       sync.Mutex
	state    State
	active   *ActiveFile
	content  string
	snapshot string
	gen      uint64
}

// NewEngine creates a sync engine in the NoFile state.
func NewEngine(opts Options) *Engine {
	return &Engine{
		remote:        opts.Remote,
		hasSession:    opts.HasSession,
		resolvers:     opts.Resolvers,
		onTreeRefresh: opts.OnTreeRefresh,
		log:           logging.NewLogger("docsync"),
	}
}

// State returns the current sync state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Active returns a copy of the active file record, or nil in NoFile.
func (e *Engine) Active() *ActiveFile {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return nil
	}
	out := *e.active
	out.Dirty = e.state == StateDirty
	return &out
}

// Content returns the engine's in-memory document payload.
func (e *Engine) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

// WouldDiscard reports whether opening another document now would throw away
// unsaved changes.
func (e *Engine) WouldDiscard() bool {
	return e.State() == StateDirty
}

// OpenFile loads the document behind a file node and transitions to Clean.
// When the current document is Dirty the injected ConfirmDiscard resolver
// decides; a declined confirmation leaves everything untouched and returns
// nil. A transport or decoding failure surfaces as LoadFailed and leaves the
// previous state unchanged; a credential rejection surfaces verbatim as
// AuthExpired.
func (e *Engine) OpenFile(ctx context.Context, node *tree.Node) error {
	if node == nil || node.Kind != tree.KindFile {
		return errors.New(errors.ErrCodeInvalidInput, "not a file node")
	}
	if node.SHA == "" {
		return errors.New(errors.ErrCodeInvalidInput, "file node has no content identity")
	}

	// The entry generation is captured before any resolver suspension point,
	// so an operation that slipped in while a confirmation dialog was open
	// displaces this one.
	e.mu.Lock()
	entryGen := e.gen
	needsConfirm := e.state == StateDirty
	current := ""
	if e.active != nil {
		current = e.active.Path
	}
	e.mu.Unlock()

	if needsConfirm {
		if e.resolvers.ConfirmDiscard == nil {
			return errors.New(errors.ErrCodeInvalidInput, "unsaved changes present and no discard resolver configured")
		}
		ok, err := e.resolvers.ConfirmDiscard(ctx, current)
		if err != nil {
			return err
		}
		if !ok {
			e.log.WithField("path", node.Path).Debug("Open cancelled, keeping unsaved changes")
			return nil
		}
	}

	e.mu.Lock()
	if e.gen != entryGen {
		e.mu.Unlock()
		e.log.WithField("path", node.Path).Debug("Discarding open displaced during confirmation")
		return nil
	}
	gen := e.nextGenLocked()
	e.mu.Unlock()

	data, sha, url, err := e.remote.FetchDocument(ctx, node.Path)
	if err != nil {
		if errors.Is(err, errors.ErrCodeAuthExpired) {
			return err
		}
		return errors.LoadFailed(node.Path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		// The user navigated elsewhere while this load was in flight.
		e.log.WithField("path", node.Path).Debug("Discarding stale load result")
		return nil
	}

	e.active = &ActiveFile{Path: node.Path, SHA: sha, URL: url}
	e.content = string(data)
	e.snapshot = e.content
	e.state = StateClean
	e.log.WithFields(logrus.Fields{"path": node.Path, "sha": sha}).Debug("Document loaded")
	return nil
}

// UpdateContent records a change notification from the editing surface.
// Content identical to the last saved snapshot never flips the dirty flag,
// so editor-internal no-op updates are harmless. The first update without an
// active file synthesizes an untitled document whose snapshot is that
// initial content.
func (e *Engine) UpdateContent(html string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil {
		e.active = &ActiveFile{Path: UntitledPath, Untitled: true}
		e.content = html
		e.snapshot = html
		e.state = StateClean
		return
	}

	e.content = html
	if e.state == StateDirty {
		return
	}
	if html == e.snapshot {
		return
	}
	e.state = StateDirty
}

// Save writes the document through the remote using the recorded
// content-identity token as the expected version. Not-dirty saves are
// no-ops with no network call. A conflict surfaces verbatim without touching
// local state; any other failure surfaces as SaveFailed with the document
// still Dirty and retryable.
func (e *Engine) Save(ctx context.Context, html string) error {
	e.mu.Lock()
	if e.state != StateDirty {
		e.mu.Unlock()
		return nil
	}
	e.content = html
	active := *e.active
	entryGen := e.gen
	e.mu.Unlock()

	if e.hasSession != nil && !e.hasSession() {
		// Save is deferred, never silently dropped: the caller reauthenticates
		// and invokes Save again, or the resolver does it inline.
		if e.resolvers.Reauthenticate == nil {
			return errors.AuthExpired()
		}
		if err := e.resolvers.Reauthenticate(ctx); err != nil {
			return errors.AuthExpired()
		}
	}

	path := active.Path
	if active.Untitled || path == "" {
		if e.resolvers.PromptSavePath == nil {
			return errors.SaveCancelled()
		}
		chosen, err := e.resolvers.PromptSavePath(ctx)
		if err != nil {
			return errors.SaveFailed(UntitledPath, err)
		}
		if chosen == "" {
			return errors.SaveCancelled()
		}
		path = chosen
	}

	// The resolvers above are suspension points: an operation confirmed by
	// the user while a prompt was open wins over this save.
	e.mu.Lock()
	if e.gen != entryGen {
		e.mu.Unlock()
		e.log.WithField("path", path).Debug("Discarding save displaced during prompt")
		return nil
	}
	gen := e.nextGenLocked()
	e.mu.Unlock()

	newSHA, newURL, err := e.remote.StoreDocument(ctx, path, []byte(html), active.SHA)
	if err != nil {
		if errors.Is(err, errors.ErrCodeConflictDetected) {
			// Never auto-resolved; the caller offers reload-or-overwrite.
			return err
		}
		if errors.Is(err, errors.ErrCodeAuthExpired) {
			return err
		}
		return errors.SaveFailed(path, err)
	}

	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		e.log.WithField("path", path).Debug("Discarding stale save result")
		return nil
	}
	wasUntitled := active.Untitled
	e.active = &ActiveFile{Path: path, SHA: newSHA, URL: newURL}
	e.snapshot = html
	e.content = html
	e.state = StateClean
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{"path": path, "sha": newSHA}).Info("Document saved")

	if wasUntitled && e.onTreeRefresh != nil {
		e.onTreeRefresh()
	}
	return nil
}

// AdoptRemoteSHA re-reads the remote version token for the active document
// so the next Save overwrites whatever is there. This is the "overwrite" arm
// of conflict resolution; content and dirty state are untouched.
func (e *Engine) AdoptRemoteSHA(ctx context.Context) error {
	e.mu.Lock()
	if e.active == nil || e.active.Untitled {
		e.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "no saved document to adopt a version from")
	}
	path := e.active.Path
	e.mu.Unlock()

	_, sha, url, err := e.remote.FetchDocument(ctx, path)
	if err != nil {
		if errors.Is(err, errors.ErrCodeAuthExpired) {
			return err
		}
		return errors.LoadFailed(path, err)
	}

	e.mu.Lock()
	if e.active != nil && e.active.Path == path {
		e.active.SHA = sha
		e.active.URL = url
	}
	e.mu.Unlock()
	return nil
}

// Discard drops the active document and returns to NoFile. Used when the
// user closes the document or logs out.
func (e *Engine) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextGenLocked()
	e.active = nil
	e.content = ""
	e.snapshot = ""
	e.state = StateNoFile
}

// nextGen invalidates any in-flight completion and returns the new
// generation token.
func (e *Engine) nextGen() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextGenLocked()
}

func (e *Engine) nextGenLocked() uint64 {
	e.gen++
	return e.gen
}
