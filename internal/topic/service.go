package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/db"
	"github.com/gokatarajesh/maths-quiz/internal/db/repository"
	"github.com/gokatarajesh/maths-quiz/internal/metrics"
)

// ListCache caches the full topic list (implemented by Redis-backed Cache).
// Invalidate bumps the generation; SetAll with an older generation is dropped.
type ListCache interface {
	Generation(ctx context.Context) (int64, error)
	GetAll(ctx context.Context) ([]Topic, bool, error)
	SetAll(ctx context.Context, gen int64, topics []Topic) (bool, error)
	Invalidate(ctx context.Context) error
}

// ChangePublisher announces topic writes to live clients.
type ChangePublisher interface {
	PublishChanged(ctx context.Context, evt ChangeEvent) error
}

// Service is the topic repository facade used by the HTTP layer.
type Service struct {
	repo   *repository.TopicRepository
	cache  ListCache
	events ChangePublisher
	logger zerolog.Logger
	now    func() time.Time

	seed     []Topic
	seedOff  bool
	seedMu   sync.Mutex
	seedDone bool
}

type ServiceOptions struct {
	// Seed overrides the built-in dataset.
	Seed []Topic
	// DisableSeed skips first-access seeding entirely.
	DisableSeed bool
	Now         func() time.Time
}

func NewService(repo *repository.TopicRepository, cache ListCache, events ChangePublisher, logger zerolog.Logger, opts ServiceOptions) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		events:  events,
		logger:  logger.With().Str("component", "topic_service").Logger(),
		now:     opts.Now,
		seed:    opts.Seed,
		seedOff: opts.DisableSeed,
	}
}

// ensureSeeded writes the built-in dataset the first time the store is seen empty.
// A failed attempt is retried on the next call.
func (s *Service) ensureSeeded(ctx context.Context) error {
	if s.seedOff {
		return nil
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if s.seedDone {
		return nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count topics: %w", err)
	}
	if count > 0 {
		s.seedDone = true
		return nil
	}

	topics := s.seed
	if topics == nil {
		if topics, err = Builtin(); err != nil {
			return err
		}
	}
	params := make([]db.UpsertTopicParams, 0, len(topics))
	for _, t := range topics {
		p, err := toParams(Normalize(t))
		if err != nil {
			return err
		}
		params = append(params, p)
	}

	inserted, err := s.repo.Seed(ctx, params)
	if err != nil {
		return fmt.Errorf("seed topics: %w", err)
	}
	metrics.TopicSeeds.Add(float64(inserted))
	s.seedDone = true
	s.logger.Info().Int("inserted", inserted).Msg("seeded built-in topics")

	if inserted > 0 {
		s.afterWrite(ctx, ChangeEvent{Op: OpSeed})
	}
	return nil
}

// List returns every topic in insertion order.
func (s *Service) List(ctx context.Context) ([]Topic, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetAll(ctx)
		switch {
		case err != nil:
			metrics.TopicCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("topic cache read failed")
		case ok:
			metrics.TopicCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.TopicCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	return s.load(ctx)
}

// Refresh reloads the list from storage and rewrites the cache.
func (s *Service) Refresh(ctx context.Context) ([]Topic, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) ([]Topic, error) {
	// The generation is read before storage so a write landing in between wins.
	var gen int64
	cacheable := s.cache != nil
	if cacheable {
		var err error
		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("topic cache generation read failed")
			cacheable = false
		}
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	topics, err := toDomainList(rows)
	if err != nil {
		return nil, err
	}

	if cacheable {
		stored, err := s.cache.SetAll(ctx, gen, topics)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("topic cache write failed")
		case !stored:
			s.logger.Debug().Int64("generation", gen).Msg("topic list changed during load; not cached")
		}
	}
	return topics, nil
}

// ListByYear filters the full list by year level.
func (s *Service) ListByYear(ctx context.Context, year int) ([]Topic, error) {
	if s.cache == nil {
		if err := s.ensureSeeded(ctx); err != nil {
			return nil, err
		}
		rows, err := s.repo.ListByYear(ctx, int32(year))
		if err != nil {
			return nil, fmt.Errorf("list topics for year %d: %w", year, err)
		}
		return toDomainList(rows)
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Topic, 0, len(all))
	for _, t := range all {
		if t.YearLevel == year {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns ErrNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, id string) (Topic, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return Topic{}, err
	}
	row, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Topic{}, ErrNotFound
	}
	if err != nil {
		return Topic{}, fmt.Errorf("get topic %s: %w", id, err)
	}
	return toDomain(row)
}

var gradeLabels = map[int]string{
	7:  "Year 7",
	8:  "Year 8",
	9:  "Year 9 GCSE",
	10: "Year 10 GCSE",
	11: "Year 11 GCSE",
}

// YearLevels summarises topic counts for every supported year, including empty ones.
func (s *Service) YearLevels(ctx context.Context) ([]YearLevelSummary, error) {
	if err := s.ensureSeeded(ctx); err != nil {
		return nil, err
	}
	rows, err := s.repo.CountByYear(ctx)
	if err != nil {
		return nil, fmt.Errorf("count topics by year: %w", err)
	}
	counts := make(map[int]int, len(rows))
	for _, r := range rows {
		counts[int(r.YearLevel)] = int(r.TopicCount)
	}

	out := make([]YearLevelSummary, 0, MaxYearLevel-MinYearLevel+1)
	for year := MinYearLevel; year <= MaxYearLevel; year++ {
		out = append(out, YearLevelSummary{
			Year:       year,
			Grade:      gradeLabels[year],
			TopicCount: counts[year],
		})
	}
	return out, nil
}

// Upsert validates then inserts or fully replaces the topic.
func (s *Service) Upsert(ctx context.Context, t Topic) (Topic, error) {
	t = Normalize(t)
	if err := Validate(t); err != nil {
		return Topic{}, err
	}
	params, err := toParams(t)
	if err != nil {
		return Topic{}, err
	}
	row, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return Topic{}, fmt.Errorf("upsert topic %s: %w", t.ID, err)
	}
	saved, err := toDomain(row)
	if err != nil {
		return Topic{}, err
	}
	metrics.TopicWrites.WithLabelValues(string(OpUpsert)).Inc()
	s.afterWrite(ctx, ChangeEvent{Op: OpUpsert, TopicID: saved.ID})
	return saved, nil
}

// Replace is Upsert addressed by id; the payload id must match.
func (s *Service) Replace(ctx context.Context, id string, t Topic) (Topic, error) {
	if t.ID != id {
		return Topic{}, &ValidationError{Field: "id", Message: "Topic ID mismatch"}
	}
	return s.Upsert(ctx, t)
}

// Delete is idempotent.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete topic %s: %w", id, err)
	}
	metrics.TopicWrites.WithLabelValues(string(OpDelete)).Inc()
	s.afterWrite(ctx, ChangeEvent{Op: OpDelete, TopicID: id})
	return nil
}

// afterWrite invalidates the list cache and announces the change. Failures are logged only.
func (s *Service) afterWrite(ctx context.Context, evt ChangeEvent) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("topic cache invalidate failed")
		}
	}
	if s.events != nil {
		evt.At = s.now().UTC()
		if err := s.events.PublishChanged(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Str("op", string(evt.Op)).Msg("topic change publish failed")
		}
	}
}

func toParams(t Topic) (db.UpsertTopicParams, error) {
	questions, err := json.Marshal(t.Questions)
	if err != nil {
		return db.UpsertTopicParams{}, fmt.Errorf("encode questions: %w", err)
	}
	return db.UpsertTopicParams{
		ID:        t.ID,
		Name:      t.Name,
		Icon:      string(t.Icon),
		YearLevel: int32(t.YearLevel),
		Category:  optionalText(t.Category),
		Mode:      optionalText(string(t.Mode)),
		Questions: questions,
	}, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func toDomain(row db.Topic) (Topic, error) {
	icon, err := ParseIcon(row.Icon)
	if err != nil {
		icon = IconDefault
	}
	t := Topic{
		ID:        row.ID,
		Name:      row.Name,
		Icon:      icon,
		YearLevel: int(row.YearLevel),
		Questions: []Question{},
	}
	if row.Category.Valid {
		t.Category = row.Category.String
	}
	if row.Mode.Valid {
		t.Mode = Mode(row.Mode.String)
	}
	if len(row.Questions) > 0 {
		if err := json.Unmarshal(row.Questions, &t.Questions); err != nil {
			return Topic{}, fmt.Errorf("decode questions for %s: %w", row.ID, err)
		}
	}
	return t, nil
}

func toDomainList(rows []db.Topic) ([]Topic, error) {
	out := make([]Topic, 0, len(rows))
	for _, r := range rows {
		t, err := toDomain(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
