package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/maths-quiz/internal/auth"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

var fixtures = map[string]topic.Topic{
	"fractions-7": {ID: "fractions-7", Name: "Fractions", Icon: topic.IconDivide, YearLevel: 7, Questions: []topic.Question{
		{ID: "f1", Prompt: "1/2 + 1/4", Options: []string{"3/4", "2/6", "1/8"}, CorrectAnswer: 0},
	}},
	"ratio-8": {ID: "ratio-8", Name: "Ratio", Icon: topic.IconPercent, YearLevel: 8, Questions: []topic.Question{
		{ID: "r1", Prompt: "Simplify 4:8", Options: []string{"1:3", "1:2"}, CorrectAnswer: 1},
	}},
}

type fixtureSource struct{}

func (fixtureSource) List(context.Context) ([]topic.Topic, error) {
	return []topic.Topic{fixtures["fractions-7"], fixtures["ratio-8"]}, nil
}

type captured struct {
	header http.Header
	path   string
}

func newTestServer(t *testing.T) (*Client, *captured) {
	t.Helper()
	last := &captured{}
	wsHandler := worksheet.NewHTTPHandler(fixtureSource{}, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/topics/{topicId}", func(w http.ResponseWriter, r *http.Request) {
		tp, ok := fixtures[r.PathValue("topicId")]
		if !ok {
			httperrors.RespondNotFound(w, httperrors.ErrCodeTopicNotFound, "Topic not found")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, tp)
	})
	mux.HandleFunc("GET /api/year-levels", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, []topic.YearLevelSummary{{Year: 7, Grade: "Grade 7", TopicCount: 1}})
	})
	mux.HandleFunc("GET /api/worksheets", wsHandler.Worksheet)
	mux.HandleFunc("GET /api/drills", wsHandler.Drills)
	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "open-sesame" {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid password")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, auth.TokenResponse{AccessToken: "tok", TokenType: "Bearer"})
	})
	mux.HandleFunc("POST /api/topics/{topicId}/import", func(w http.ResponseWriter, r *http.Request) {
		last.header, last.path = r.Header.Clone(), r.URL.Path
		body, _ := io.ReadAll(r.Body)
		rows := strings.Count(strings.TrimSpace(string(body)), "\n") + 1
		httperrors.RespondJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"topic":   topic.Topic{ID: "uploaded", Name: r.URL.Query().Get("name")},
			"added":   rows,
			"created": true,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", srv.Client()), last
}

func TestGetTopics(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	got, err := c.GetTopics(ctx, []string{"ratio-8", "fractions-7"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ratio", got[0].Name, "order follows the request")
	assert.Equal(t, "Fractions", got[1].Name)

	_, err = c.GetTopics(ctx, []string{"fractions-7", "calculus-13"})
	assert.ErrorIs(t, err, topic.ErrNotFound)
}

func TestYearLevels(t *testing.T) {
	c, _ := newTestServer(t)

	levels, err := c.YearLevels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []topic.YearLevelSummary{{Year: 7, Grade: "Grade 7", TopicCount: 1}}, levels)
}

func TestWorksheetAndDrills(t *testing.T) {
	c, _ := newTestServer(t)
	ctx := context.Background()

	ws, err := c.Worksheet(ctx, WorksheetQuery{Topics: []string{"fractions-7", "ratio-8"}, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, worksheet.ModeWorksheet, ws.Mode)
	assert.Len(t, ws.Items, 2, "only two questions exist")

	_, err = c.Worksheet(ctx, WorksheetQuery{Topics: []string{"fractions-7"}, Mode: "poster"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, httperrors.ErrCodeValidationFailed, apiErr.Code)

	drills, err := c.Drills(ctx, []worksheet.DrillTopic{worksheet.DrillArithmetic}, 4)
	require.NoError(t, err)
	assert.Equal(t, worksheet.ModeDrill, drills.Mode)
	assert.Len(t, drills.Items, 4)
}

func TestLoginAndImport(t *testing.T) {
	c, last := newTestServer(t)
	ctx := context.Background()

	_, err := c.Login(ctx, "guess")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	tokens, err := c.Login(ctx, "open-sesame")
	require.NoError(t, err)
	assert.Equal(t, "tok", tokens.AccessToken)

	res, err := c.WithToken(tokens.AccessToken).ImportCSV(ctx, "", "Circle Theorems", strings.NewReader("q1,a,b,c,d\nq2,a,b,c,d\n"))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, "Circle Theorems", res.Topic.Name)
	assert.Equal(t, "Bearer tok", last.header.Get("Authorization"))
	assert.Equal(t, "text/csv", last.header.Get("Content-Type"))
	assert.Equal(t, "/api/topics/new/import", last.path)
}
