package storyblok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned by GetStory when the backend has no story with the
// requested id.
var ErrNotFound = errors.New("story not found")

type Client struct {
	baseURL string
	spaceID string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL, spaceID, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		spaceID: spaceID,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Search runs a semantic search against the Strata vsearches endpoint. The
// endpoint has returned both a bare JSON list and an object wrapping the list
// under "stories" or "results"; all three shapes are accepted. Records that
// fail to decode are skipped with a warning rather than failing the search.
func (c *Client) Search(ctx context.Context, term string, limit, offset int) (SearchResults, error) {
	params := url.Values{}
	params.Set("term", term)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))

	endpoint := fmt.Sprintf("%s/v1/spaces/%s/vsearches?%s", c.baseURL, c.spaceID, params.Encode())

	c.logger.Info("searching storyblok", "term", term, "limit", limit, "offset", offset)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return SearchResults{}, err
	}

	records, err := extractRecords(body)
	if err != nil {
		return SearchResults{}, err
	}

	stories := make([]Story, 0, len(records))
	for _, raw := range records {
		var s Story
		if err := json.Unmarshal(raw, &s); err != nil {
			c.logger.Warn("skipping unparseable story record", "error", err)
			continue
		}
		stories = append(stories, s)
	}

	c.logger.Info("storyblok search complete", "term", term, "results", len(stories))

	return SearchResults{Stories: stories, Total: len(stories)}, nil
}

// GetStory fetches the full content document for a story id from the Content
// Delivery API. Returns ErrNotFound for a missing story.
func (c *Client) GetStory(ctx context.Context, storyID int64) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/cdn/stories/%d", c.baseURL, storyID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch story %d: %w", storyID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch story %d: status %d: %s", storyID, resp.StatusCode, truncate(string(b), 200))
	}

	var wrapper struct {
		Story json.RawMessage `json:"story"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("decode story %d: %w", storyID, err)
	}
	if len(wrapper.Story) == 0 || string(wrapper.Story) == "null" {
		return nil, ErrNotFound
	}
	return wrapper.Story, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)
}

// extractRecords accepts either a bare list or an object with the list under
// "stories" or "results".
func extractRecords(body []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var records []json.RawMessage
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, fmt.Errorf("decode search response list: %w", err)
		}
		return records, nil
	}

	var wrapper struct {
		Stories []json.RawMessage `json:"stories"`
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("decode search response object: %w", err)
	}
	if wrapper.Stories != nil {
		return wrapper.Stories, nil
	}
	return wrapper.Results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
