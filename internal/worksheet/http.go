package worksheet

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/topic"
	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

// TopicSource lists the topics a worksheet can draw from.
type TopicSource interface {
	List(ctx context.Context) ([]topic.Topic, error)
}

// Response is the JSON body of a generated sheet.
type Response struct {
	Mode  Mode   `json:"mode"`
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// HTTPHandler serves worksheets and drills.
type HTTPHandler struct {
	topics TopicSource
	logger zerolog.Logger
	rng    func() *rand.Rand
	now    func() time.Time
}

func NewHTTPHandler(topics TopicSource, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		topics: topics,
		logger: logger.With().Str("component", "worksheet_http").Logger(),
		rng: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
		now: time.Now,
	}
}

// WithRand fixes the random source, for reproducible sheets.
func (h *HTTPHandler) WithRand(fn func() *rand.Rand) *HTTPHandler {
	h.rng = fn
	return h
}

// Worksheet handles GET /api/worksheets?topics=a,b&count=10&mode=worksheet&tier=&format=json|csv
func (h *HTTPHandler) Worksheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := splitList(q.Get("topics"))
	if len(ids) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "topics is required", "topics")
		return
	}
	mode, err := ParseMode(q.Get("mode"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "mode")
		return
	}
	count, ok := parseCount(w, q.Get("count"))
	if !ok {
		return
	}
	tier := topic.Tier(q.Get("tier"))
	if tier != "" && !tier.Valid() {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "tier must be foundation or higher", "tier")
		return
	}

	all, err := h.topics.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list topics for worksheet failed")
		httperrors.RespondInternalError(w, "Failed to fetch topics")
		return
	}
	selected, missing := pickTopics(all, ids)
	if missing != "" {
		httperrors.RespondNotFound(w, httperrors.ErrCodeTopicNotFound, fmt.Sprintf("Topic %q not found", missing))
		return
	}

	ws, err := Generate(selected, Options{Mode: mode, Count: count, Tier: tier}, h.rng())
	if errors.Is(err, ErrNoQuestions) {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeNoQuestions, "Selected topics have no questions")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("generate worksheet failed")
		httperrors.RespondInternalError(w, "Failed to generate worksheet")
		return
	}
	h.respond(w, r, ws, "worksheet")
}

// Drills handles GET /api/drills?topics=fractions,powers&count=10&format=json|csv
func (h *HTTPHandler) Drills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	names := splitList(q.Get("topics"))
	if len(names) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "topics is required", "topics")
		return
	}
	topics := make([]DrillTopic, 0, len(names))
	for _, n := range names {
		t, err := ParseDrillTopic(n)
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeUnknownDrill, err.Error(), "topics")
			return
		}
		topics = append(topics, t)
	}
	count, ok := parseCount(w, q.Get("count"))
	if !ok {
		return
	}

	ws, err := GenerateDrills(topics, count, h.rng())
	if err != nil {
		h.logger.Error().Err(err).Msg("generate drills failed")
		httperrors.RespondInternalError(w, "Failed to generate drills")
		return
	}
	h.respond(w, r, ws, "drills")
}

// DrillTopics handles GET /api/drills/topics
func (h *HTTPHandler) DrillTopics(w http.ResponseWriter, _ *http.Request) {
	httperrors.RespondJSON(w, http.StatusOK, DrillTopics())
}

func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, ws *Worksheet, filePrefix string) {
	switch r.URL.Query().Get("format") {
	case "", "json":
		httperrors.RespondJSON(w, http.StatusOK, Response{Mode: ws.Mode, Count: len(ws.Items), Items: ws.Items})
	case "csv":
		name := fmt.Sprintf("%s-%s.csv", filePrefix, h.now().UTC().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		if err := WriteCSV(w, ws.Items); err != nil {
			h.logger.Warn().Err(err).Msg("write csv failed")
		}
	default:
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "format must be json or csv", "format")
	}
}

func parseCount(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "count must be a positive integer", "count")
		return 0, false
	}
	return n, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// pickTopics returns the topics named by ids in request order, or the first id not found.
func pickTopics(all []topic.Topic, ids []string) ([]topic.Topic, string) {
	byID := make(map[string]topic.Topic, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	out := make([]topic.Topic, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, id
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, t)
		}
	}
	return out, ""
}
