package tree

import (
	"context"
	"testing"
	"time"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/gh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned directory listings keyed by path.
type fakeAPI struct {
	repos       []gh.Repository
	reposErr    error
	createErr   error
	listings    map[string][]gh.ContentEntry
	listErr     map[string]error
	listCalls   int
	createCalls int
}

func (f *fakeAPI) ListRepositories(ctx context.Context) ([]gh.Repository, error) {
	return f.repos, f.reposErr
}

func (f *fakeAPI) CreateRepository(ctx context.Context, name string) (*gh.Repository, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gh.Repository{Name: name, Private: true, DefaultBranch: "main"}, nil
}

func (f *fakeAPI) ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]gh.ContentEntry, error) {
	f.listCalls++
	if err, ok := f.listErr[path]; ok {
		return nil, err
	}
	return f.listings[path], nil
}

func newTestCache(api *fakeAPI) *Cache {
	c := NewCache(api, nil)
	c.Select("octocat", "notes", "")
	return c
}

func TestListRepositories404MeansEmpty(t *testing.T) {
	api := &fakeAPI{reposErr: errors.NotFound("/user/repos")}
	c := newTestCache(api)

	repos, err := c.ListRepositories(context.Background())
	require.NoError(t, err, "a 404 from the provider is zero repositories, not a failure")
	assert.NotNil(t, repos)
	assert.Empty(t, repos)
}

func TestListRepositoriesPassThrough(t *testing.T) {
	api := &fakeAPI{repos: []gh.Repository{
		{Name: "notes", UpdatedAt: time.Now()},
		{Name: "blog", UpdatedAt: time.Now().Add(-time.Hour)},
	}}
	c := newTestCache(api)

	repos, err := c.ListRepositories(context.Background())
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestCreateRepositoryScopeGate(t *testing.T) {
	api := &fakeAPI{}
	c := NewCache(api, func(name string) bool { return false })
	c.Select("octocat", "notes", "")

	_, err := c.CreateRepository(context.Background(), "newrepo")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.GetCode(err))
	assert.Zero(t, api.createCalls, "no network call without the repo scope")
}

func TestCreateRepositoryNameConflictSurfaces(t *testing.T) {
	api := &fakeAPI{createErr: errors.NameConflict("notes")}
	c := newTestCache(api)

	_, err := c.CreateRepository(context.Background(), "notes")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNameConflict, errors.GetCode(err))
}

func TestExpandOrdersDirsBeforeFiles(t *testing.T) {
	api := &fakeAPI{listings: map[string][]gh.ContentEntry{
		"": {
			{Name: "zeta.html", Path: "zeta.html", Type: "file", SHA: "s1"},
			{Name: "docs", Path: "docs", Type: "dir", SHA: "s2"},
			{Name: "alpha.html", Path: "alpha.html", Type: "file", SHA: "s3"},
			{Name: "assets", Path: "assets", Type: "dir", SHA: "s4"},
		},
	}}
	c := newTestCache(api)

	children, err := c.Expand(context.Background(), "")
	require.NoError(t, err)

	var names []string
	for _, n := range children {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"assets", "docs", "alpha.html", "zeta.html"}, names)
}

func TestExpandPreservesSiblingChildren(t *testing.T) {
	api := &fakeAPI{listings: map[string][]gh.ContentEntry{
		"": {
			{Name: "docs", Path: "docs", Type: "dir", SHA: "d1"},
			{Name: "images", Path: "images", Type: "dir", SHA: "d2"},
		},
		"docs": {
			{Name: "index.html", Path: "docs/index.html", Type: "file", SHA: "f1"},
		},
		"images": {
			{Name: "logo.png", Path: "images/logo.png", Type: "file", SHA: "f2"},
		},
	}}
	c := newTestCache(api)

	_, err := c.Expand(context.Background(), "")
	require.NoError(t, err)
	_, err = c.Expand(context.Background(), "docs")
	require.NoError(t, err)
	_, err = c.Expand(context.Background(), "images")
	require.NoError(t, err)

	docs := c.Node("docs")
	require.NotNil(t, docs)
	require.Len(t, docs.Children, 1, "expanding /images must not drop /docs children")
	assert.Equal(t, "docs/index.html", docs.Children[0].Path)
}

func TestReExpandParentKeepsExpandedChild(t *testing.T) {
	api := &fakeAPI{listings: map[string][]gh.ContentEntry{
		"": {
			{Name: "docs", Path: "docs", Type: "dir", SHA: "d1"},
		},
		"docs": {
			{Name: "index.html", Path: "docs/index.html", Type: "file", SHA: "f1"},
		},
	}}
	c := newTestCache(api)

	_, err := c.Expand(context.Background(), "")
	require.NoError(t, err)
	_, err = c.Expand(context.Background(), "docs")
	require.NoError(t, err)

	// Re-expanding the root must not reset docs to unfetched.
	_, err = c.Expand(context.Background(), "")
	require.NoError(t, err)

	docs := c.Node("docs")
	require.NotNil(t, docs)
	assert.Len(t, docs.Children, 1)
}

func TestExpandFailureLeavesFolderCollapsed(t *testing.T) {
	api := &fakeAPI{
		listings: map[string][]gh.ContentEntry{
			"": {{Name: "docs", Path: "docs", Type: "dir", SHA: "d1"}},
		},
		listErr: map[string]error{
			"docs": errors.TransportError(context.DeadlineExceeded),
		},
	}
	c := newTestCache(api)

	_, err := c.Expand(context.Background(), "")
	require.NoError(t, err)

	_, err = c.Expand(context.Background(), "docs")
	require.Error(t, err)

	docs := c.Node("docs")
	require.NotNil(t, docs)
	assert.Nil(t, docs.Children, "failed expansion leaves the folder collapsed")
	assert.Error(t, docs.ExpandErr)
}

func TestExpandDropsVanishedSubtrees(t *testing.T) {
	api := &fakeAPI{listings: map[string][]gh.ContentEntry{
		"": {
			{Name: "docs", Path: "docs", Type: "dir", SHA: "d1"},
			{Name: "old", Path: "old", Type: "dir", SHA: "d2"},
		},
		"old": {
			{Name: "stale.html", Path: "old/stale.html", Type: "file", SHA: "f9"},
		},
	}}
	c := newTestCache(api)

	_, err := c.Expand(context.Background(), "")
	require.NoError(t, err)
	_, err = c.Expand(context.Background(), "old")
	require.NoError(t, err)

	// The folder disappears remotely.
	api.listings[""] = []gh.ContentEntry{
		{Name: "docs", Path: "docs", Type: "dir", SHA: "d1"},
	}
	_, err = c.Expand(context.Background(), "")
	require.NoError(t, err)

	assert.Nil(t, c.Node("old"))
	assert.Nil(t, c.Node("old/stale.html"))
}

func TestExpandUnknownPath(t *testing.T) {
	c := newTestCache(&fakeAPI{})
	_, err := c.Expand(context.Background(), "nope")
	require.Error(t, err)
}
