package progress

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/achievement"
)

const dateLayout = "2006-01-02"

// DefaultReviewLimit caps ReviewMistakes when the caller passes no limit.
const DefaultReviewLimit = 20

// Service owns the read-modify-write cycle over one learner's progress.
type Service struct {
	backend Backend
	logger  zerolog.Logger
	loc     *time.Location
	now     func() time.Time

	// mu serialises RecordResult so two completions in this process never lose an update.
	mu sync.Mutex
}

type Options struct {
	// Location decides where calendar days start for streaks. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

func NewService(backend Backend, logger zerolog.Logger, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		backend: backend,
		logger:  logger.With().Str("component", "progress").Logger(),
		loc:     opts.Location,
		now:     opts.Now,
	}
}

// RecordOutcome is the saved progress plus the achievements this result unlocked.
type RecordOutcome struct {
	Progress        UserProgress
	NewAchievements []achievement.Achievement
}

// Load returns the stored progress. Missing or unreadable data yields a fresh record;
// only backend failures are returned as errors.
func (s *Service) Load(ctx context.Context) (UserProgress, error) {
	raw, err := s.backend.Get(ctx, KeyProgress)
	if errors.Is(err, ErrKeyNotFound) {
		return defaultProgress(s.now()), nil
	}
	if err != nil {
		return UserProgress{}, fmt.Errorf("load progress: %w", err)
	}

	var p UserProgress
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn().Err(err).Msg("stored progress is corrupt, starting fresh")
		return defaultProgress(s.now()), nil
	}
	if p.QuizHistory == nil {
		p.QuizHistory = []QuizResult{}
	}
	if p.Achievements == nil {
		p.Achievements = []achievement.ID{}
	}
	return p, nil
}

func (s *Service) Save(ctx context.Context, p UserProgress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.backend.Set(ctx, KeyProgress, raw); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// RecordResult prepends r to the history, updates counters and streak, evaluates
// achievements and saves once.
func (s *Service) RecordResult(ctx context.Context, r QuizResult) (RecordOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.Load(ctx)
	if err != nil {
		return RecordOutcome{}, err
	}
	now := s.now()
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}

	p.QuizHistory = append([]QuizResult{r}, p.QuizHistory...)
	p.TotalQuizzesTaken++
	if r.Perfect() {
		p.PerfectScores++
	}
	s.applyStreak(&p, now)
	p.LastVisit = now

	before := p.Achievements
	p.Achievements = achievement.Evaluate(p.Counters(), before)

	if err := s.Save(ctx, p); err != nil {
		return RecordOutcome{}, err
	}

	out := RecordOutcome{Progress: p}
	for _, id := range achievement.Delta(before, p.Achievements) {
		if a, ok := achievement.Lookup(id); ok {
			out.NewAchievements = append(out.NewAchievements, a)
		}
	}
	s.logger.Debug().
		Str("topic_id", r.TopicID).
		Int("score", r.Score).
		Int("total", r.Total).
		Int("streak", p.Streak).
		Int("new_achievements", len(out.NewAchievements)).
		Msg("quiz result recorded")
	return out, nil
}

// applyStreak compares calendar days in the configured location: same day keeps the
// streak, the following day extends it, anything else restarts it at 1.
func (s *Service) applyStreak(p *UserProgress, now time.Time) {
	today := now.In(s.loc).Format(dateLayout)
	if p.LastStreakDate == today {
		return
	}

	next := 1
	if last, err := time.ParseInLocation(dateLayout, p.LastStreakDate, s.loc); err == nil {
		if last.AddDate(0, 0, 1).Format(dateLayout) == today {
			next = max(p.Streak, 0) + 1
		}
	}
	p.Streak = next
	p.LastStreakDate = today
}

// TopicPerformance aggregates every attempt at one topic.
type TopicPerformance struct {
	TopicID    string  `json:"topicId"`
	TopicName  string  `json:"topicName"`
	Percentage float64 `json:"percentage"`
	Attempts   int     `json:"attempts"`
}

type Statistics struct {
	TotalAttempts    int                `json:"totalAttempts"`
	AverageScore     float64            `json:"averageScore"`
	PerfectScores    int                `json:"perfectScores"`
	CurrentStreak    int                `json:"currentStreak"`
	TopicPerformance []TopicPerformance `json:"topicPerformance"`
	RecentActivity   []QuizResult       `json:"recentActivity"`
}

const recentActivityLimit = 10

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(p), nil
}

// ComputeStatistics derives the dashboard figures from p. Weakest topics sort first.
func ComputeStatistics(p UserProgress) Statistics {
	type agg struct {
		name           string
		correct, total int
		attempts       int
	}
	var (
		order                 []string
		byTopic               = map[string]*agg{}
		totalCorrect, totalQs int
	)
	for _, r := range p.QuizHistory {
		totalCorrect += r.Score
		totalQs += r.Total

		a, ok := byTopic[r.TopicID]
		if !ok {
			a = &agg{name: r.TopicName}
			byTopic[r.TopicID] = a
			order = append(order, r.TopicID)
		}
		a.correct += r.Score
		a.total += r.Total
		a.attempts++
	}

	st := Statistics{
		TotalAttempts:    len(p.QuizHistory),
		PerfectScores:    p.PerfectScores,
		CurrentStreak:    p.Streak,
		TopicPerformance: make([]TopicPerformance, 0, len(order)),
	}
	if totalQs > 0 {
		st.AverageScore = percentage(totalCorrect, totalQs)
	}
	for _, id := range order {
		a := byTopic[id]
		tp := TopicPerformance{TopicID: id, TopicName: a.name, Attempts: a.attempts}
		if a.total > 0 {
			tp.Percentage = percentage(a.correct, a.total)
		}
		st.TopicPerformance = append(st.TopicPerformance, tp)
	}
	sortByPercentage(st.TopicPerformance)

	n := min(len(p.QuizHistory), recentActivityLimit)
	st.RecentActivity = append([]QuizResult{}, p.QuizHistory[:n]...)
	return st
}

func sortByPercentage(tp []TopicPerformance) {
	slices.SortStableFunc(tp, func(a, b TopicPerformance) int {
		return cmp.Compare(a.Percentage, b.Percentage)
	})
}

func percentage(correct, total int) float64 {
	return float64(correct) / float64(total) * 100
}

// ReviewItem is a mistake with the quiz it came from.
type ReviewItem struct {
	Mistake
	TopicID   string    `json:"topicId"`
	TopicName string    `json:"topicName"`
	Timestamp time.Time `json:"timestamp"`
}

// ReviewMistakes returns up to limit mistakes, newest quiz first.
func (s *Service) ReviewMistakes(ctx context.Context, limit int) ([]ReviewItem, error) {
	if limit <= 0 {
		limit = DefaultReviewLimit
	}
	p, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]ReviewItem, 0, limit)
	for _, r := range p.QuizHistory {
		for _, m := range r.Mistakes {
			if len(items) == limit {
				return items, nil
			}
			items = append(items, ReviewItem{Mistake: m, TopicID: r.TopicID, TopicName: r.TopicName, Timestamp: r.Timestamp})
		}
	}
	return items, nil
}

func (s *Service) Preferences(ctx context.Context) (Preferences, error) {
	raw, err := s.backend.Get(ctx, KeyPreferences)
	if errors.Is(err, ErrKeyNotFound) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		s.logger.Warn().Err(err).Msg("stored preferences are corrupt, using defaults")
		return DefaultPreferences(), nil
	}
	if prefs.Difficulty == "" {
		prefs.Difficulty = DefaultPreferences().Difficulty
	}
	return prefs, nil
}

func (s *Service) SavePreferences(ctx context.Context, prefs Preferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.backend.Set(ctx, KeyPreferences, raw); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ClearAll removes progress and preferences. The client id survives.
func (s *Service) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, KeyProgress, KeyPreferences); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	s.logger.Info().Msg("progress cleared")
	return nil
}

// Visit identifies this client across sessions.
type Visit struct {
	ClientID string
	// Previous is the last recorded visit, zero on first use.
	Previous time.Time
	New      bool
}

// ClientID returns the persisted client id, creating it on first use.
func (s *Service) ClientID(ctx context.Context) (string, error) {
	id, _, err := s.clientID(ctx)
	return id, err
}

func (s *Service) clientID(ctx context.Context) (id string, created bool, err error) {
	raw, err := s.backend.Get(ctx, KeyClientID)
	switch {
	case errors.Is(err, ErrKeyNotFound) || (err == nil && len(raw) == 0):
		id = "user_" + uuid.NewString()
		if err := s.backend.Set(ctx, KeyClientID, []byte(id)); err != nil {
			return "", false, fmt.Errorf("save client id: %w", err)
		}
		return id, true, nil
	case err != nil:
		return "", false, fmt.Errorf("load client id: %w", err)
	}
	return string(raw), false, nil
}

// TouchVisit returns the persisted client id (creating it on first use) and stamps
// the current time as the last visit.
func (s *Service) TouchVisit(ctx context.Context) (Visit, error) {
	var v Visit
	var err error
	if v.ClientID, v.New, err = s.clientID(ctx); err != nil {
		return Visit{}, err
	}

	if raw, err := s.backend.Get(ctx, KeyLastVisit); err == nil {
		if ms, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
			v.Previous = time.UnixMilli(ms)
		}
	}
	stamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.backend.Set(ctx, KeyLastVisit, []byte(stamp)); err != nil {
		return Visit{}, fmt.Errorf("save last visit: %w", err)
	}
	return v, nil
}
