package gh

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ContentEntry is one entry of a repository contents listing.
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	Type        string `json:"type"` // "file" or "dir"
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
}

// FileContent is a single file fetched with its transport-encoded payload.
type FileContent struct {
	ContentEntry
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Decode returns the file's raw bytes. The provider base64-encodes content
// with embedded newlines; decoding must be byte-exact so arbitrary Unicode
// survives the round trip.
func (f *FileContent) Decode() ([]byte, error) {
	switch f.Encoding {
	case "base64":
		compact := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, f.Content)
		data, err := base64.StdEncoding.DecodeString(compact)
		if err != nil {
			return nil, fmt.Errorf("decode base64 content: %w", err)
		}
		return data, nil
	case "", "none":
		return []byte(f.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", f.Encoding)
	}
}

func contentsPath(owner, repo, path, ref string) string {
	p := fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(owner), url.PathEscape(repo), escapePath(path))
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}
	return p
}

// ListDirectory fetches the immediate children of a directory. An empty
// slice is a valid result for an empty directory.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, path, ref string) ([]ContentEntry, error) {
	var entries []ContentEntry
	if err := c.get(ctx, contentsPath(owner, repo, path, ref), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetFile fetches a single file with its content payload.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (*FileContent, error) {
	var file FileContent
	if err := c.get(ctx, contentsPath(owner, repo, path, ref), &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// PutFileOptions carries a contents write.
type PutFileOptions struct {
	Message string
	Content []byte

	// SHA is the expected current version of the file; the provider rejects
	// the write with a conflict when the remote file has changed since this
	// was recorded. Empty for a new file.
	SHA string

	// Branch is the target branch. Empty means the repository default.
	Branch string
}

type putFileRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

// PutFileResponse is the provider's answer to a contents write.
type PutFileResponse struct {
	Content *ContentEntry `json:"content"`
	Commit  struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// PutFile creates or updates a file. The optimistic-concurrency check rides
// on opts.SHA; a mismatch surfaces as ConflictDetected.
func (c *Client) PutFile(ctx context.Context, owner, repo, path string, opts PutFileOptions) (*PutFileResponse, error) {
	req := putFileRequest{
		Message: opts.Message,
		Content: base64.StdEncoding.EncodeToString(opts.Content),
		SHA:     opts.SHA,
		Branch:  opts.Branch,
	}

	p := fmt.Sprintf("/repos/%s/%s/contents/%s",
		url.PathEscape(owner), url.PathEscape(repo), escapePath(path))

	var resp PutFileResponse
	if err := c.do(ctx, "PUT", p, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
