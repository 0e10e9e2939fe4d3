package gh

import (
	"context"
	"fmt"
	"time"

	"github.com/inkwell-editor/inkwell/errors"
)

// Repository is one repository visible to the session.
type Repository struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         Owner     `json:"owner"`
	Private       bool      `json:"private"`
	DefaultBranch string    `json:"default_branch"`
	UpdatedAt     time.Time `json:"updated_at"`
	HTMLURL       string    `json:"html_url"`
}

// Owner is the account a repository belongs to.
type Owner struct {
	Login string `json:"login"`
}

// ListRepositories fetches all repositories visible to the session, most
// recently updated first, following pagination until the provider returns a
// short page.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	const pageSize = 100

	var repos []Repository
	for page := 1; ; page++ {
		var batch []Repository
		path := fmt.Sprintf("/user/repos?sort=updated&per_page=%d&page=%d", pageSize, page)
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, err
		}
		repos = append(repos, batch...)
		if len(batch) < pageSize {
			return repos, nil
		}
	}
}

type createRepoRequest struct {
	Name     string `json:"name"`
	Private  bool   `json:"private"`
	AutoInit bool   `json:"auto_init"`
}

// CreateRepository creates a new private repository with an initial commit.
// A provider 422 for a duplicate name surfaces as NameConflict.
func (c *Client) CreateRepository(ctx context.Context, name string) (*Repository, error) {
	req := createRepoRequest{Name: name, Private: true, AutoInit: true}

	var repo Repository
	if err := c.do(ctx, "POST", "/user/repos", req, &repo); err != nil {
		if errors.Is(err, errors.ErrCodeValidationFailed) {
			return nil, errors.NameConflict(name)
		}
		return nil, err
	}
	return &repo, nil
}
