package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/maths-quiz/internal/db"
)

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("not found")

type topicStore interface {
	CountTopics(ctx context.Context) (int64, error)
	ListTopics(ctx context.Context) ([]db.Topic, error)
	ListTopicsByYear(ctx context.Context, yearLevel int32) ([]db.Topic, error)
	GetTopic(ctx context.Context, id string) (db.Topic, error)
	UpsertTopic(ctx context.Context, arg db.UpsertTopicParams) (db.Topic, error)
	InsertTopicIfAbsent(ctx context.Context, arg db.UpsertTopicParams) (int64, error)
	DeleteTopic(ctx context.Context, id string) error
	CountTopicsByYear(ctx context.Context) ([]db.CountTopicsByYearRow, error)
}

// TopicRepository wraps the topic queries.
type TopicRepository struct {
	store topicStore
}

func NewTopicRepository(store topicStore) *TopicRepository {
	return &TopicRepository{store: store}
}

func (r *TopicRepository) Count(ctx context.Context) (int64, error) {
	return r.store.CountTopics(ctx)
}

// List returns every topic in insertion order.
func (r *TopicRepository) List(ctx context.Context) ([]db.Topic, error) {
	return r.store.ListTopics(ctx)
}

func (r *TopicRepository) ListByYear(ctx context.Context, yearLevel int32) ([]db.Topic, error) {
	return r.store.ListTopicsByYear(ctx, yearLevel)
}

// Get maps pgx.ErrNoRows to ErrNotFound.
func (r *TopicRepository) Get(ctx context.Context, id string) (db.Topic, error) {
	row, err := r.store.GetTopic(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.Topic{}, ErrNotFound
	}
	return row, err
}

func (r *TopicRepository) Upsert(ctx context.Context, params db.UpsertTopicParams) (db.Topic, error) {
	return r.store.UpsertTopic(ctx, params)
}

// Seed inserts every topic that does not already exist and reports how many were written.
func (r *TopicRepository) Seed(ctx context.Context, params []db.UpsertTopicParams) (int, error) {
	inserted := 0
	for _, p := range params {
		n, err := r.store.InsertTopicIfAbsent(ctx, p)
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

// Delete is idempotent: deleting a missing id is not an error.
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	return r.store.DeleteTopic(ctx, id)
}

func (r *TopicRepository) CountByYear(ctx context.Context) ([]db.CountTopicsByYearRow, error) {
	return r.store.CountTopicsByYear(ctx)
}
