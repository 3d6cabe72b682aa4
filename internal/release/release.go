// Package release queries the remote release source (GitHub releases)
// for the fleet repository. It distinguishes "no releases published
// yet" from "remote unreachable" so the resolver can degrade correctly
// on an unattended device.
package release

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mccannical/printerd/internal/branding"
	"github.com/mccannical/printerd/internal/version"
)

const (
	githubAPIBase = "https://api.github.com"

	// DefaultTimeout bounds every remote lookup. A periodic run must
	// never hang on a dead network.
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrUnreachable marks a transport-level failure or timeout talking
	// to the release source. Retryable; callers degrade to a no-op.
	ErrUnreachable = errors.New("release source unreachable")
	// ErrNoReleases means the source answered but has no published
	// release (or the requested tag does not exist).
	ErrNoReleases = errors.New("no matching release")
)

// Release is the subset of the GitHub release payload the agent uses.
type Release struct {
	TagName   string    `json:"tag_name"`
	Name      string    `json:"name"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Source looks up releases for the configured repository.
type Source struct {
	repo       string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) {
		s.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(s *Source) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// New creates a Source for the branded fleet repository.
func New(opts ...Option) *Source {
	s := &Source{
		repo:       branding.GitHubRepo(),
		baseURL:    githubAPIBase,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the descriptor of the most recent published release.
func (s *Source) Latest() (version.Descriptor, error) {
	rel, err := s.fetch(fmt.Sprintf("%s/repos/%s/releases/latest", s.baseURL, s.repo))
	if err != nil {
		return version.Descriptor{}, err
	}
	return version.Parse(rel.TagName), nil
}

// ByTag returns the release published under tag, if any. A missing "v"
// prefix is tolerated the way operators type versions.
func (s *Source) ByTag(tag string) (*Release, error) {
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}
	return s.fetch(fmt.Sprintf("%s/repos/%s/releases/tags/%s", s.baseURL, s.repo, tag))
}

func (s *Source) fetch(url string) (*Release, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", branding.CLIName()+"-agent")

	// Support optional GitHub token for higher rate limits.
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoReleases
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: GitHub API rate limit exceeded, set GITHUB_TOKEN for higher limits", ErrUnreachable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: release source returned status %d", ErrUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnreachable, err)
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("parsing release JSON: %w", err)
	}
	return &rel, nil
}
