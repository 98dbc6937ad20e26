// Package hfhub talks to the HuggingFace Hub's repository tree API: it
// lists a repo's files (with LFS sha256 when present) and streams one
// file's bytes, the two primitives the Model Stager needs for its
// HuggingFace source (§4.2).
package hfhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"time"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

const (
	defaultEndpoint = "https://huggingface.co"
	defaultRevision = "main"
	requestTimeout  = 30 * time.Second
)

// repoIDPattern matches spec.md §4.2's HuggingFace repo id validation:
// "owner/name" with word characters, dashes, and dots.
var repoIDPattern = regexp.MustCompile(`^[\w\-.]+/[\w\-.]+$`)

// ValidRepoID reports whether repoID matches the owner/name shape.
func ValidRepoID(repoID string) bool {
	return repoIDPattern.MatchString(repoID)
}

// File is one entry in a repo's file tree.
type File struct {
	Path string
	Size int64
	// Sha256 is the LFS object id when the file is LFS-backed, empty
	// otherwise. The Model Stager passes it to the store as the
	// expected digest when non-empty.
	Sha256 string
}

type treeEntry struct {
	Path string   `json:"path"`
	Size int64    `json:"size"`
	Type string   `json:"type"`
	LFS  *lfsInfo `json:"lfs,omitempty"`
}

type lfsInfo struct {
	OID string `json:"oid"`
}

// Client fetches repo metadata and file bytes from one HuggingFace
// endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient builds a Client. token may be empty for public repos.
func NewClient(endpoint, token string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// ListFiles lists every file in repoID's default revision, recursively.
func (c *Client) ListFiles(ctx context.Context, repoID string) ([]File, error) {
	treeURL := fmt.Sprintf("%s/api/models/%s/tree/%s?recursive=true",
		c.endpoint, repoID, url.QueryEscape(defaultRevision))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, treeURL, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	var resp *http.Response
	if err := fleeterr.Retry(ctx, fleeterr.DefaultRetryConfig(), func() error {
		r, doErr := c.http.Do(req)
		if doErr != nil {
			return fleeterr.New(fleeterr.ApiUnavailable, "hfhub.ListFiles", doErr)
		}
		resp = r
		return nil
	}); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hfhub: list %s: unexpected status %d", repoID, resp.StatusCode)
	}

	var entries []treeEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("hfhub: decode tree for %s: %w", repoID, err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.Type != "file" {
			continue
		}
		f := File{Path: e.Path, Size: e.Size}
		if e.LFS != nil {
			f.Sha256 = e.LFS.OID
			f.Size = max(f.Size, e.Size)
		}
		files = append(files, f)
	}
	return files, nil
}

// FilterByPatterns returns the subset of files whose Path matches any
// of patterns (glob, matched against the basename and the full path).
// Used to union model.files glob entries against a repo's tree (§4.2).
func FilterByPatterns(files []File, patterns []string) []File {
	var out []File
	for _, f := range files {
		for _, p := range patterns {
			if ok, _ := path.Match(p, f.Path); ok {
				out = append(out, f)
				break
			}
			if ok, _ := path.Match(p, path.Base(f.Path)); ok {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// OpenFile streams repoID's file at filePath. The caller must Close
// the returned body. contentLength is -1 when the server does not
// report one.
func (c *Client) OpenFile(ctx context.Context, repoID, filePath string) (body io.ReadCloser, contentLength int64, err error) {
	fileURL := fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repoID, defaultRevision, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, 0, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("hfhub: open %s/%s: unexpected status %d", repoID, filePath, resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "fleetctl-hfhub/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
