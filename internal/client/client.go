// Package client talks to the maths-quiz API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/maths-quiz/internal/auth"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

const (
	defaultBaseURL = "http://localhost:8080"
	maxParallel    = 4
)

// APIError is a non-2xx response decoded from the standard error body.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
}

// Client is a thin JSON client for the topic, worksheet and admin routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WithToken returns a copy that sends the admin bearer token on every request.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) ListTopics(ctx context.Context) ([]topic.Topic, error) {
	var out []topic.Topic
	err := c.do(ctx, http.MethodGet, "/api/topics", nil, "", &out)
	return out, err
}

func (c *Client) TopicsByYear(ctx context.Context, year int) ([]topic.Topic, error) {
	var out []topic.Topic
	err := c.do(ctx, http.MethodGet, "/api/topics/year/"+strconv.Itoa(year), nil, "", &out)
	return out, err
}

// GetTopic maps a 404 to topic.ErrNotFound.
func (c *Client) GetTopic(ctx context.Context, id string) (topic.Topic, error) {
	var out topic.Topic
	err := c.do(ctx, http.MethodGet, "/api/topics/"+url.PathEscape(id), nil, "", &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return topic.Topic{}, fmt.Errorf("%s: %w", id, topic.ErrNotFound)
	}
	return out, err
}

// GetTopics fetches several topics concurrently and returns them in the order asked.
func (c *Client) GetTopics(ctx context.Context, ids []string) ([]topic.Topic, error) {
	out := make([]topic.Topic, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, id := range ids {
		g.Go(func() error {
			t, err := c.GetTopic(ctx, id)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) YearLevels(ctx context.Context) ([]topic.YearLevelSummary, error) {
	var out []topic.YearLevelSummary
	err := c.do(ctx, http.MethodGet, "/api/year-levels", nil, "", &out)
	return out, err
}

// WorksheetQuery mirrors the GET /api/worksheets parameters.
type WorksheetQuery struct {
	Topics []string
	Mode   worksheet.Mode
	Count  int
	Tier   topic.Tier
}

func (c *Client) Worksheet(ctx context.Context, q WorksheetQuery) (worksheet.Response, error) {
	values := url.Values{}
	values.Set("topics", strings.Join(q.Topics, ","))
	if q.Mode != "" {
		values.Set("mode", string(q.Mode))
	}
	if q.Count > 0 {
		values.Set("count", strconv.Itoa(q.Count))
	}
	if q.Tier != "" {
		values.Set("tier", string(q.Tier))
	}
	var out worksheet.Response
	err := c.do(ctx, http.MethodGet, "/api/worksheets?"+values.Encode(), nil, "", &out)
	return out, err
}

func (c *Client) Drills(ctx context.Context, topics []worksheet.DrillTopic, count int) (worksheet.Response, error) {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = string(t)
	}
	values := url.Values{}
	values.Set("topics", strings.Join(names, ","))
	if count > 0 {
		values.Set("count", strconv.Itoa(count))
	}
	var out worksheet.Response
	err := c.do(ctx, http.MethodGet, "/api/drills?"+values.Encode(), nil, "", &out)
	return out, err
}

// Login exchanges the admin password for a bearer token.
func (c *Client) Login(ctx context.Context, password string) (auth.TokenResponse, error) {
	body, err := json.Marshal(auth.LoginRequest{Password: password})
	if err != nil {
		return auth.TokenResponse{}, err
	}
	var out auth.TokenResponse
	err = c.do(ctx, http.MethodPost, "/api/admin/login", bytes.NewReader(body), "application/json", &out)
	return out, err
}

// ImportCSV uploads question rows. An empty topicID with a name creates a new topic.
func (c *Client) ImportCSV(ctx context.Context, topicID, name string, csv io.Reader) (topic.ImportResult, error) {
	path := "/api/topics/" + url.PathEscape(topicID) + "/import"
	if topicID == "" {
		path = "/api/topics/" + topic.NewTopicPathID + "/import?" + url.Values{"name": {name}}.Encode()
	}
	var out topic.ImportResult
	err := c.do(ctx, http.MethodPost, path, csv, "text/csv", &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload httperrors.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code, apiErr.Message, apiErr.Field = payload.Error, payload.Message, payload.Field
		} else {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
