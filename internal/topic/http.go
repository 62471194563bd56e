package topic

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

const (
	maxTopicBody  = 1 << 20
	maxImportBody = 5 << 20

	// NewTopicPathID addresses a topic that the import should create.
	NewTopicPathID = "new"
)

// HTTPHandler exposes the topic REST endpoints.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "topic_http").Logger(),
	}
}

// WriteResponse is the body of every successful write.
type WriteResponse struct {
	Success bool   `json:"success"`
	Topic   *Topic `json:"topic,omitempty"`
}

// List handles GET /api/topics
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	topics, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list topics failed")
		httperrors.RespondInternalError(w, "Failed to fetch topics")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, topics)
}

// ListByYear handles GET /api/topics/year/{yearLevel}
func (h *HTTPHandler) ListByYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("yearLevel"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidYearLevel, "Invalid year level")
		return
	}
	topics, err := h.svc.ListByYear(r.Context(), year)
	if err != nil {
		h.logger.Error().Err(err).Int("year", year).Msg("list topics by year failed")
		httperrors.RespondInternalError(w, "Failed to fetch topics")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, topics)
}

// Get handles GET /api/topics/{topicId}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), r.PathValue("topicId"))
	if err != nil {
		h.respondServiceError(w, err, "Failed to fetch topic")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, t)
}

// YearLevels handles GET /api/year-levels
func (h *HTTPHandler) YearLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.svc.YearLevels(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("year levels failed")
		httperrors.RespondInternalError(w, "Failed to fetch year levels")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, levels)
}

// Create handles POST /api/topics
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var t Topic
	if !h.decode(w, r, &t) {
		return
	}
	saved, err := h.svc.Upsert(r.Context(), t)
	if err != nil {
		h.respondServiceError(w, err, "Failed to save topic")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, WriteResponse{Success: true, Topic: &saved})
}

// Replace handles PUT /api/topics/{topicId}
func (h *HTTPHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var t Topic
	if !h.decode(w, r, &t) {
		return
	}
	id := r.PathValue("topicId")
	if t.ID != id {
		httperrors.RespondValidationError(w, httperrors.ErrCodeIDMismatch, "Topic ID mismatch", "id")
		return
	}
	saved, err := h.svc.Replace(r.Context(), id, t)
	if err != nil {
		h.respondServiceError(w, err, "Failed to update topic")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, WriteResponse{Success: true, Topic: &saved})
}

// Delete handles DELETE /api/topics/{topicId}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("topicId")); err != nil {
		h.respondServiceError(w, err, "Failed to delete topic")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, WriteResponse{Success: true})
}

// Import handles POST /api/topics/{topicId}/import with a CSV body.
// topicId "new" together with ?name= creates a topic.
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	req := ImportRequest{TopicID: r.PathValue("topicId")}
	if req.TopicID == NewTopicPathID {
		req = ImportRequest{NewTopicName: r.URL.Query().Get("name")}
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	result, err := h.svc.ImportCSV(r.Context(), req, body)
	if err != nil {
		h.respondServiceError(w, err, "Failed to import questions")
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httperrors.RespondJSON(w, status, struct {
		Success bool `json:"success"`
		ImportResult
	}{Success: true, ImportResult: result})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTopicBody)).Decode(dst); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func (h *HTTPHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		code := httperrors.ErrCodeValidationFailed
		if strings.HasSuffix(verr.Message, "is required") {
			code = httperrors.ErrCodeMissingField
		}
		httperrors.RespondValidationError(w, code, verr.Error(), verr.Field)
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeTopicNotFound, "Topic not found")
	default:
		h.logger.Error().Err(err).Msg(fallback)
		httperrors.RespondInternalError(w, fallback)
	}
}
