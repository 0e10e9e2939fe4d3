package docsync

import (
	"context"
	"testing"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote is an in-memory document store with call counting.
type fakeRemote struct {
	files map[string]fakeDoc

	fetchCalls int
	storeCalls int

	fetchErr error
	storeErr error
}

type fakeDoc struct {
	content string
	sha     string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{files: map[string]fakeDoc{}}
}

func (r *fakeRemote) FetchDocument(ctx context.Context, path string) ([]byte, string, string, error) {
	r.fetchCalls++
	if r.fetchErr != nil {
		return nil, "", "", r.fetchErr
	}
	doc, ok := r.files[path]
	if !ok {
		return nil, "", "", errors.NotFound(path)
	}
	return []byte(doc.content), doc.sha, "https://example.com/" + path, nil
}

func (r *fakeRemote) StoreDocument(ctx context.Context, path string, content []byte, sha string) (string, string, error) {
	r.storeCalls++
	if r.storeErr != nil {
		return "", "", r.storeErr
	}
	if existing, ok := r.files[path]; ok && existing.sha != sha {
		return "", "", errors.ConflictDetected(path)
	}
	doc := fakeDoc{content: string(content), sha: "sha-" + string(rune('0'+r.storeCalls))}
	r.files[path] = doc
	return doc.sha, "https://example.com/" + path, nil
}

func fileNode(path, sha string) *tree.Node {
	return &tree.Node{Path: path, Name: path, Kind: tree.KindFile, SHA: sha}
}

func newTestEngine(remote Remote, resolvers Resolvers) *Engine {
	return NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return true },
		Resolvers:  resolvers,
	})
}

func TestOpenFileLoadsClean(t *testing.T) {
	remote := newFakeRemote()
	remote.files["docs/index.html"] = fakeDoc{content: "<p>hello</p>", sha: "abc"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("docs/index.html", "abc")))

	assert.Equal(t, StateClean, e.State())
	assert.Equal(t, "<p>hello</p>", e.Content())

	active := e.Active()
	require.NotNil(t, active)
	assert.Equal(t, "docs/index.html", active.Path)
	assert.Equal(t, "abc", active.SHA)
	assert.False(t, active.Dirty)
}

func TestUpdateContentIdenticalToSnapshotStaysClean(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>same</p>", sha: "s"}
	e := newTestEngine(remote, Resolvers{})
	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "s")))

	// Editor-internal no-op updates must not flip the dirty flag.
	for i := 0; i < 5; i++ {
		e.UpdateContent("<p>same</p>")
	}
	assert.Equal(t, StateClean, e.State())

	e.UpdateContent("<p>changed</p>")
	assert.Equal(t, StateDirty, e.State())
}

func TestOpenFileWhileDirtyNeedsConfirmation(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	remote.files["b.html"] = fakeDoc{content: "<p>b</p>", sha: "sb"}

	confirmed := false
	e := newTestEngine(remote, Resolvers{
		ConfirmDiscard: func(ctx context.Context, path string) (bool, error) {
			return confirmed, nil
		},
	})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")
	require.True(t, e.WouldDiscard())

	// Declined: prior ActiveFile and content untouched.
	require.NoError(t, e.OpenFile(context.Background(), fileNode("b.html", "sb")))
	assert.Equal(t, "a.html", e.Active().Path)
	assert.Equal(t, "<p>edited</p>", e.Content())
	assert.Equal(t, StateDirty, e.State())

	// Confirmed: the other file replaces it.
	confirmed = true
	require.NoError(t, e.OpenFile(context.Background(), fileNode("b.html", "sb")))
	assert.Equal(t, "b.html", e.Active().Path)
	assert.Equal(t, StateClean, e.State())
}

func TestSaveWhenNotDirtyIsNoop(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	require.NoError(t, e.Save(context.Background(), "<p>a</p>"))

	assert.Zero(t, remote.storeCalls, "a clean save must issue no network call")
}

func TestSaveRoundTripAndShaRotation(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>héllo — 日本語 🖋️</p>")

	require.NoError(t, e.Save(context.Background(), "<p>héllo — 日本語 🖋️</p>"))
	assert.Equal(t, StateClean, e.State())

	saved := e.Active()
	assert.NotEqual(t, "sa", saved.SHA, "SHA replaced with the provider's response")

	// Loading it back yields byte-identical content.
	e2 := newTestEngine(remote, Resolvers{})
	require.NoError(t, e2.OpenFile(context.Background(), fileNode("a.html", saved.SHA)))
	assert.Equal(t, "<p>héllo — 日本語 🖋️</p>", e2.Content())
}

func TestSaveConflictLeavesStateUntouched(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>mine</p>")

	// The remote file changes underneath the recorded SHA.
	remote.files["a.html"] = fakeDoc{content: "<p>theirs</p>", sha: "rotated"}

	err := e.Save(context.Background(), "<p>mine</p>")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflictDetected, errors.GetCode(err))

	assert.Equal(t, StateDirty, e.State(), "conflict must not clear the dirty flag")
	assert.Equal(t, "<p>mine</p>", e.Content())
	assert.Equal(t, "sa", e.Active().SHA, "recorded SHA untouched on conflict")
}

func TestSaveTransportFailureStaysDirty(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")

	remote.storeErr = errors.TransportError(context.DeadlineExceeded)
	err := e.Save(context.Background(), "<p>edited</p>")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSaveFailed, errors.GetCode(err))
	assert.Equal(t, StateDirty, e.State(), "failed save remains retryable")

	// Retry after the transport recovers.
	remote.storeErr = nil
	require.NoError(t, e.Save(context.Background(), "<p>edited</p>"))
	assert.Equal(t, StateClean, e.State())
}

func TestUntitledSavePromptsForPath(t *testing.T) {
	remote := newFakeRemote()
	refreshed := false
	e := NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return true },
		Resolvers: Resolvers{
			PromptSavePath: func(ctx context.Context) (string, error) {
				return "drafts/new.html", nil
			},
		},
		OnTreeRefresh: func() { refreshed = true },
	})

	// Editing with no file open synthesizes an untitled document.
	e.UpdateContent("")
	e.UpdateContent("<p>draft</p>")
	require.Equal(t, StateDirty, e.State())

	active := e.Active()
	require.NotNil(t, active)
	assert.True(t, active.Untitled)
	assert.Empty(t, active.SHA)

	require.NoError(t, e.Save(context.Background(), "<p>draft</p>"))

	active = e.Active()
	assert.Equal(t, "drafts/new.html", active.Path)
	assert.False(t, active.Untitled)
	assert.NotEmpty(t, active.SHA)
	assert.True(t, refreshed, "first save of an untitled document refreshes the tree")
}

func TestUntitledSaveCancelled(t *testing.T) {
	remote := newFakeRemote()
	e := newTestEngine(remote, Resolvers{
		PromptSavePath: func(ctx context.Context) (string, error) { return "", nil },
	})

	e.UpdateContent("")
	e.UpdateContent("<p>draft</p>")

	err := e.Save(context.Background(), "<p>draft</p>")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSaveCancelled, errors.GetCode(err))
	assert.Equal(t, StateDirty, e.State())
	assert.Zero(t, remote.storeCalls)
}

func TestSaveWithoutSessionDefersToReauth(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}

	hasSession := true
	reauthCalls := 0
	e := NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return hasSession },
		Resolvers: Resolvers{
			Reauthenticate: func(ctx context.Context) error {
				reauthCalls++
				hasSession = true
				return nil
			},
		},
	})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")

	hasSession = false
	require.NoError(t, e.Save(context.Background(), "<p>edited</p>"))
	assert.Equal(t, 1, reauthCalls)
	assert.Equal(t, StateClean, e.State())
}

func TestSaveWithoutSessionAndNoResolver(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return false },
	})

	// Loading doesn't consult the session; saving does.
	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")

	err := e.Save(context.Background(), "<p>edited</p>")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthExpired, errors.GetCode(err))
	assert.Equal(t, StateDirty, e.State(), "save deferred, never dropped")
	assert.Zero(t, remote.storeCalls)
}

func TestOpenFileFailureLeavesPreviousState(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))

	remote.fetchErr = errors.TransportError(context.DeadlineExceeded)
	err := e.OpenFile(context.Background(), fileNode("b.html", "sb"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLoadFailed, errors.GetCode(err))

	assert.Equal(t, "a.html", e.Active().Path, "failed load leaves previous document in place")
	assert.Equal(t, StateClean, e.State())
}

func TestStaleLoadResultDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.files["slow.html"] = fakeDoc{content: "<p>slow</p>", sha: "s1"}
	remote.files["fast.html"] = fakeDoc{content: "<p>fast</p>", sha: "s2"}

	e := newTestEngine(remote, Resolvers{})

	// Simulate a slow load completing after the user navigated elsewhere:
	// the remote's fetch triggers a competing open before returning.
	slowRemote := &racingRemote{inner: remote, engine: nil}
	e2 := newTestEngine(slowRemote, Resolvers{})
	slowRemote.engine = e2
	slowRemote.raceNode = fileNode("fast.html", "s2")

	require.NoError(t, e2.OpenFile(context.Background(), fileNode("slow.html", "s1")))

	// The slow result must not clobber the later navigation.
	assert.Equal(t, "fast.html", e2.Active().Path)
	assert.Equal(t, "<p>fast</p>", e2.Content())
	_ = e
}

// racingRemote triggers a competing OpenFile the first time a document is
// fetched, then delegates.
type racingRemote struct {
	inner    *fakeRemote
	engine   *Engine
	raceNode *tree.Node
	raced    bool
}

func (r *racingRemote) FetchDocument(ctx context.Context, path string) ([]byte, string, string, error) {
	if !r.raced && r.raceNode != nil && path != r.raceNode.Path {
		r.raced = true
		if err := r.engine.OpenFile(ctx, r.raceNode); err != nil {
			return nil, "", "", err
		}
	}
	return r.inner.FetchDocument(ctx, path)
}

func (r *racingRemote) StoreDocument(ctx context.Context, path string, content []byte, sha string) (string, string, error) {
	return r.inner.StoreDocument(ctx, path, content, sha)
}

func TestDiscardReturnsToNoFile(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")

	e.Discard()
	assert.Equal(t, StateNoFile, e.State())
	assert.Nil(t, e.Active())
	assert.Empty(t, e.Content())
}

func TestSaveDisplacedDuringPromptIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.files["other.html"] = fakeDoc{content: "<p>other</p>", sha: "so"}

	refreshed := false
	var e *Engine
	e = NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return true },
		Resolvers: Resolvers{
			ConfirmDiscard: func(ctx context.Context, path string) (bool, error) {
				return true, nil
			},
			PromptSavePath: func(ctx context.Context) (string, error) {
				// The user answers the dialog by opening another document
				// instead; the open wins over the suspended save.
				require.NoError(t, e.OpenFile(ctx, fileNode("other.html", "so")))
				return "draft.html", nil
			},
		},
		OnTreeRefresh: func() { refreshed = true },
	})

	e.UpdateContent("")
	e.UpdateContent("<p>draft</p>")
	require.Equal(t, StateDirty, e.State())

	require.NoError(t, e.Save(context.Background(), "<p>draft</p>"))

	active := e.Active()
	require.NotNil(t, active)
	assert.Equal(t, "other.html", active.Path, "the confirmed open must survive the displaced save")
	assert.Equal(t, "<p>other</p>", e.Content())
	assert.Equal(t, StateClean, e.State())

	assert.Zero(t, remote.storeCalls, "a displaced save must not reach the remote")
	_, created := remote.files["draft.html"]
	assert.False(t, created)
	assert.False(t, refreshed, "no file was created, so no tree refresh")
}

func TestOpenDisplacedDuringConfirmationIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	remote.files["b.html"] = fakeDoc{content: "<p>b</p>", sha: "sb"}

	var e *Engine
	e = NewEngine(Options{
		Remote:     remote,
		HasSession: func() bool { return true },
		Resolvers: Resolvers{
			ConfirmDiscard: func(ctx context.Context, path string) (bool, error) {
				// The document is closed while the dialog is open.
				e.Discard()
				return true, nil
			},
		},
	})

	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))
	e.UpdateContent("<p>edited</p>")
	fetchesBefore := remote.fetchCalls

	require.NoError(t, e.OpenFile(context.Background(), fileNode("b.html", "sb")))

	assert.Equal(t, StateNoFile, e.State(), "the close wins over the displaced open")
	assert.Nil(t, e.Active())
	assert.Equal(t, fetchesBefore, remote.fetchCalls, "a displaced open must not fetch")
}

func TestOpenFilePassesThroughAuthExpired(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errors.AuthExpired()
	e := newTestEngine(remote, Resolvers{})

	err := e.OpenFile(context.Background(), fileNode("a.html", "sa"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthExpired, errors.GetCode(err),
		"a credential rejection must not be masked as a load failure")
	assert.Equal(t, StateNoFile, e.State())
}

func TestAdoptRemoteSHAPassesThroughAuthExpired(t *testing.T) {
	remote := newFakeRemote()
	remote.files["a.html"] = fakeDoc{content: "<p>a</p>", sha: "sa"}
	e := newTestEngine(remote, Resolvers{})
	require.NoError(t, e.OpenFile(context.Background(), fileNode("a.html", "sa")))

	remote.fetchErr = errors.AuthExpired()
	err := e.AdoptRemoteSHA(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAuthExpired, errors.GetCode(err))
}
