package topic

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/gokatarajesh/maths-quiz/internal/metrics"
)

const (
	importedExplanation = "Uploaded by admin."
	importedYearLevel   = 11
	csvMinFields        = 5
)

// ImportRequest targets either an existing topic (TopicID) or a new one (NewTopicName).
type ImportRequest struct {
	TopicID      string
	NewTopicName string
}

type ImportResult struct {
	Topic   Topic `json:"topic"`
	Added   int   `json:"added"`
	Skipped int   `json:"skipped"`
	Created bool  `json:"created"`
}

// ParseQuestionsCSV reads rows of [question, correct, option2, option3, option4].
// Short rows and rows with a blank question or correct option are skipped.
func ParseQuestionsCSV(r io.Reader) ([]Question, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var (
		questions []Question
		skipped   int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("parse csv: %w", err)
		}
		if len(row) < csvMinFields || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			skipped++
			continue
		}
		options := make([]string, 0, 4)
		for _, opt := range row[1:5] {
			options = append(options, strings.TrimSpace(opt))
		}
		questions = append(questions, Question{
			ID:            "uploaded-" + uuid.NewString(),
			Prompt:        strings.TrimSpace(row[0]),
			Options:       options,
			CorrectAnswer: 0,
			Explanation:   importedExplanation,
		})
	}
	return questions, skipped, nil
}

// ImportCSV appends parsed questions to an existing topic, or creates a new year 11 topic.
func (s *Service) ImportCSV(ctx context.Context, req ImportRequest, r io.Reader) (ImportResult, error) {
	creating := req.TopicID == ""
	if creating && strings.TrimSpace(req.NewTopicName) == "" {
		return ImportResult{}, &ValidationError{Field: "name", Message: "is required for a new topic"}
	}

	questions, skipped, err := ParseQuestionsCSV(r)
	if err != nil {
		return ImportResult{}, &ValidationError{Field: "file", Message: err.Error()}
	}
	if len(questions) == 0 {
		return ImportResult{}, &ValidationError{Field: "file", Message: "no importable rows"}
	}

	var target Topic
	if creating {
		target = Topic{
			ID:        "custom-" + uuid.NewString(),
			Name:      strings.TrimSpace(req.NewTopicName),
			Icon:      IconDocument,
			YearLevel: importedYearLevel,
			Questions: questions,
		}
	} else {
		existing, err := s.Get(ctx, req.TopicID)
		if err != nil {
			return ImportResult{}, err
		}
		target = existing
		target.Questions = append(target.Questions, questions...)
	}

	target = Normalize(target)
	if err := Validate(target); err != nil {
		return ImportResult{}, err
	}
	params, err := toParams(target)
	if err != nil {
		return ImportResult{}, err
	}
	row, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import into topic %s: %w", target.ID, err)
	}
	saved, err := toDomain(row)
	if err != nil {
		return ImportResult{}, err
	}

	metrics.TopicWrites.WithLabelValues(string(OpImport)).Inc()
	s.afterWrite(ctx, ChangeEvent{Op: OpImport, TopicID: saved.ID})
	s.logger.Info().
		Str("topic_id", saved.ID).
		Int("added", len(questions)).
		Int("skipped", skipped).
		Bool("created", creating).
		Msg("csv import applied")

	return ImportResult{Topic: saved, Added: len(questions), Skipped: skipped, Created: creating}, nil
}
