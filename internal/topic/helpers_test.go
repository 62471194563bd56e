package topic

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/maths-quiz/internal/db"
	"github.com/gokatarajesh/maths-quiz/internal/db/repository"
)

// memStore is an in-memory stand-in for the topics table.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]db.Topic
	nextPos int64
	counts  int
	failAll error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]db.Topic{}}
}

func (m *memStore) CountTopics(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	if m.failAll != nil {
		return 0, m.failAll
	}
	return int64(len(m.rows)), nil
}

func (m *memStore) ordered() []db.Topic {
	out := make([]db.Topic, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (m *memStore) ListTopics(context.Context) ([]db.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	return m.ordered(), nil
}

func (m *memStore) ListTopicsByYear(_ context.Context, year int32) ([]db.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Topic
	for _, r := range m.ordered() {
		if r.YearLevel == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetTopic(_ context.Context, id string) (db.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return db.Topic{}, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memStore) write(arg db.UpsertTopicParams) db.Topic {
	row, exists := m.rows[arg.ID]
	if !exists {
		m.nextPos++
		row.Position = m.nextPos
	}
	row.ID = arg.ID
	row.Name = arg.Name
	row.Icon = arg.Icon
	row.YearLevel = arg.YearLevel
	row.Category = arg.Category
	row.Mode = arg.Mode
	row.Questions = arg.Questions
	m.rows[arg.ID] = row
	return row
}

func (m *memStore) UpsertTopic(_ context.Context, arg db.UpsertTopicParams) (db.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return db.Topic{}, m.failAll
	}
	return m.write(arg), nil
}

func (m *memStore) InsertTopicIfAbsent(_ context.Context, arg db.UpsertTopicParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[arg.ID]; ok {
		return 0, nil
	}
	m.write(arg)
	return 1, nil
}

func (m *memStore) DeleteTopic(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memStore) CountTopicsByYear(context.Context) ([]db.CountTopicsByYearRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[int32]int64{}
	for _, r := range m.rows {
		counts[r.YearLevel]++
	}
	var out []db.CountTopicsByYearRow
	for y, c := range counts {
		out = append(out, db.CountTopicsByYearRow{YearLevel: y, TopicCount: c})
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (p *recordingPublisher) PublishChanged(_ context.Context, evt ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) ops() []ChangeOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChangeOp, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Op)
	}
	return out
}

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleTopic(id string, year int) Topic {
	return Topic{
		ID:        id,
		Name:      "Topic " + id,
		Icon:      IconDivide,
		YearLevel: year,
		Questions: []Question{
			{
				ID:            id + "-q1",
				Prompt:        "What is 1/2 + 1/4?",
				Options:       []string{"3/4", "2/6", "1/6", "2/4"},
				CorrectAnswer: 0,
				Explanation:   "Convert to quarters.",
				Difficulty:    TierDifficulty(TierFoundation),
			},
		},
	}
}

type fixture struct {
	store *memStore
	pub   *recordingPublisher
	svc   *Service
}

func newFixture(t *testing.T, cache ListCache, opts ServiceOptions) fixture {
	t.Helper()
	store := newMemStore()
	pub := &recordingPublisher{}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	svc := NewService(repository.NewTopicRepository(store), cache, pub, zerolog.Nop(), opts)
	return fixture{store: store, pub: pub, svc: svc}
}

func mustParams(t *testing.T, tp Topic) db.UpsertTopicParams {
	t.Helper()
	p, err := toParams(Normalize(tp))
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}
