package docsync

import (
	"context"
	"strings"

	"github.com/inkwell-editor/inkwell/gh"
)

// Remote abstracts the document read/write surface of the provider.
type Remote interface {
	// FetchDocument returns the decoded bytes, content-identity token, and
	// remote address of the document at path.
	FetchDocument(ctx context.Context, path string) (content []byte, sha, url string, err error)

	// StoreDocument writes content to path. sha is the expected current
	// version, empty for a new file; a mismatch surfaces as ConflictDetected.
	StoreDocument(ctx context.Context, path string, content []byte, sha string) (newSHA, newURL string, err error)
}

// GitHubRemote implements Remote over the contents API of one repository.
type GitHubRemote struct {
	API   *gh.Client
	Owner string
	Repo  string

	// Branch is the branch saves are committed to and reads resolve
	// against. Empty means the repository's default branch.
	Branch string

	// Message is the commit message template; "{path}" is replaced with the
	// document path.
	Message string
}

var _ Remote = (*GitHubRemote)(nil)

// FetchDocument implements Remote.
func (r *GitHubRemote) FetchDocument(ctx context.Context, path string) ([]byte, string, string, error) {
	file, err := r.API.GetFile(ctx, r.Owner, r.Repo, path, r.Branch)
	if err != nil {
		return nil, "", "", err
	}
	data, err := file.Decode()
	if err != nil {
		return nil, "", "", err
	}
	return data, file.SHA, file.HTMLURL, nil
}

// StoreDocument implements Remote.
func (r *GitHubRemote) StoreDocument(ctx context.Context, path string, content []byte, sha string) (string, string, error) {
	message := strings.ReplaceAll(r.Message, "{path}", path)
	if message == "" {
		message = "Update " + path
	}

	resp, err := r.API.PutFile(ctx, r.Owner, r.Repo, path, gh.PutFileOptions{
		Message: message,
		Content: content,
		SHA:     sha,
		Branch:  r.Branch,
	})
	if err != nil {
		return "", "", err
	}
	if resp.Content == nil {
		return "", "", nil
	}
	return resp.Content.SHA, resp.Content.HTMLURL, nil
}
