package tree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/inkwell-editor/inkwell/errors"
	"github.com/inkwell-editor/inkwell/gh"
	"github.com/inkwell-editor/inkwell/logging"
	"github.com/sirupsen/logrus"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile Kind = "file"
	KindDir  Kind = "dir"
)

// Node is one entry of the selected repository's tree. A directory's
// Children are either nil (not yet fetched) or a complete, ordered listing
// of its immediate entries; a partial listing is never retained.
type Node struct {
	Path string
	Name string
	Kind Kind

	// SHA is the content-identity token reported by the provider.
	SHA string

	// URL is the provider's HTML address for the entry.
	URL string

	Children []*Node

	// ExpandErr records the last failed expansion; the folder stays
	// collapsed until a retry succeeds.
	ExpandErr error
}

// API is the slice of the remote client the cache depends on.
type API interface {
	ListRepositories(ctx context.Context) ([]gh.Repository, error)
	CreateRepository(ctx context.Context, name string) (*gh.Repository, error)
	ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]gh.ContentEntry, error)
}

var _ API = (*gh.Client)(nil)

// Cache maintains the in-memory tree of the selected repository, lazily
// expanded per folder. Nodes live in a path-keyed arena so a partial refresh
// is a map update, not a tree rebuild.
type Cache struct {
	api      API
	hasScope func(name string) bool
	log      *logrus.Entry

	mu    sync.Mutex
	owner string
	repo  string
	ref   string
	nodes map[string]*Node
}

// NewCache creates a tree cache. hasScope gates repository creation; nil
// disables the gate.
func NewCache(api API, hasScope func(name string) bool) *Cache {
	return &Cache{
		api:      api,
		hasScope: hasScope,
		log:      logging.NewLogger("tree"),
		nodes:    map[string]*Node{},
	}
}

// ListRepositories returns all repositories visible to the session, most
// recently updated first. Some providers answer 404 for users with zero
// repositories; that is an empty list, not an error.
func (c *Cache) ListRepositories(ctx context.Context) ([]gh.Repository, error) {
	repos, err := c.api.ListRepositories(ctx)
	if err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return []gh.Repository{}, nil
		}
		return nil, err
	}
	return repos, nil
}

// CreateRepository creates a new private repository with an initial commit.
func (c *Cache) CreateRepository(ctx context.Context, name string) (*gh.Repository, error) {
	if c.hasScope != nil && !c.hasScope("repo") {
		return nil, errors.Unauthorized("repo")
	}
	return c.api.CreateRepository(ctx, name)
}

// Select resets the cache onto a repository. ref is the branch contents are
// read from; empty means the repository default.
func (c *Cache) Select(owner, repo, ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
	c.repo = repo
	c.ref = ref
	c.nodes = map[string]*Node{
		"": {Path: "", Kind: KindDir},
	}
}

// Selected returns the owner and repository the cache is bound to.
func (c *Cache) Selected() (owner, repo string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner, c.repo
}

// Node returns the cached node at path, or nil. The root is path "".
func (c *Cache) Node(path string) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[path]
}

// Expand fetches the immediate children of the directory at path and merges
// them into the tree, preserving already-expanded children elsewhere. On
// failure the error is recorded on the node and the folder stays collapsed.
func (c *Cache) Expand(ctx context.Context, path string) ([]*Node, error) {
	c.mu.Lock()
	owner, repo, ref := c.owner, c.repo, c.ref
	node, ok := c.nodes[path]
	c.mu.Unlock()

	if !ok || node.Kind != KindDir {
		return nil, errors.New(errors.ErrCodeInvalidInput, "not a known directory: "+path)
	}

	entries, err := c.api.ListDirectory(ctx, owner, repo, path, ref)
	if err != nil {
		c.mu.Lock()
		node.ExpandErr = err
		c.mu.Unlock()
		c.log.WithError(err).WithField("path", path).Warn("Folder expansion failed")
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	children := make([]*Node, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		kind := KindFile
		if e.Type == "dir" {
			kind = KindDir
		}
		child := &Node{Path: e.Path, Name: e.Name, Kind: kind, SHA: e.SHA, URL: e.HTMLURL}

		// A re-expanded directory keeps its previously fetched children.
		if prev, ok := c.nodes[e.Path]; ok && prev.Kind == kind && kind == KindDir {
			child.Children = prev.Children
		}

		c.nodes[e.Path] = child
		seen[e.Path] = true
		children = append(children, child)
	}

	sortNodes(children)

	// Entries that vanished remotely take their subtrees with them.
	for _, prev := range node.Children {
		if !seen[prev.Path] {
			c.removeSubtreeLocked(prev.Path)
		}
	}

	node.Children = children
	node.ExpandErr = nil
	return children, nil
}

// removeSubtreeLocked drops a node and all its descendants from the arena.
func (c *Cache) removeSubtreeLocked(path string) {
	delete(c.nodes, path)
	prefix := path + "/"
	for p := range c.nodes {
		if strings.HasPrefix(p, prefix) {
			delete(c.nodes, p)
		}
	}
}

// sortNodes orders directories before files, then lexicographically by name.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Kind != nodes[j].Kind {
			return nodes[i].Kind == KindDir
		}
		return nodes[i].Name < nodes[j].Name
	})
}
