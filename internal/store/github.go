package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.github.com"

// GitHub stores the document as a file in a GitHub repository, using
// the Contents API. The blob SHA is the revision token, so WriteIf
// maps directly onto the API's own compare-and-swap: a PUT with a
// stale sha is rejected with 409.
type GitHub struct {
	client  *http.Client
	baseURL string
	repo    string // "owner/repo"
	token   string
}

type GitHubOption func(*GitHub)

// WithBaseURL points the adapter at a different API host, mainly for
// tests against a local fake.
func WithBaseURL(url string) GitHubOption {
	return func(g *GitHub) { g.baseURL = strings.TrimRight(url, "/") }
}

func WithHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHub) { g.client = c }
}

func NewGitHub(repo, token string, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		repo:    repo,
		token:   token,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// contentsFile is the subset of the Contents API GET response we use.
type contentsFile struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

func (g *GitHub) Read(ctx context.Context, path string) ([]byte, string, error) {
	resp, body, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, "", &UpstreamError{Op: "read " + path, Status: resp.StatusCode, Body: string(body)}
	}

	var file contentsFile
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, "", fmt.Errorf("read %s: decode response: %w", path, err)
	}
	// The API wraps base64 content with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: decode content: %w", path, err)
	}
	return raw, file.SHA, nil
}

func (g *GitHub) WriteIf(ctx context.Context, path string, content []byte, revision, message string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if revision != "" {
		payload["sha"] = revision
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("write %s: encode request: %w", path, err)
	}

	resp, body, err := g.do(ctx, http.MethodPut, path, reqBody)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return ErrConflict
	default:
		return &UpstreamError{Op: "write " + path, Status: resp.StatusCode, Body: string(body)}
	}
}

// do performs one Contents API call. The primary credential scheme is
// "token <t>"; a 401 is retried once with "Bearer <t>" since
// fine-grained tokens prefer the latter and the backend accepts both.
func (g *GitHub) do(ctx context.Context, method, path string, body []byte) (*http.Response, []byte, error) {
	resp, respBody, err := g.send(ctx, method, path, body, "token "+g.token)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp, respBody, err = g.send(ctx, method, path, body, "Bearer "+g.token)
		if err != nil {
			return nil, nil, err
		}
	}
	return resp, respBody, nil
}

func (g *GitHub) send(ctx context.Context, method, path string, body []byte, auth string) (*http.Response, []byte, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/%s", g.baseURL, g.repo, path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}
