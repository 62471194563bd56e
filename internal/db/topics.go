package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const topicColumns = `id, name, icon, year_level, category, mode, questions, position, created_at, updated_at`

func scanTopic(row pgx.Row) (Topic, error) {
	var i Topic
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Icon,
		&i.YearLevel,
		&i.Category,
		&i.Mode,
		&i.Questions,
		&i.Position,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectTopics(rows pgx.Rows) ([]Topic, error) {
	defer rows.Close()
	var items []Topic
	for rows.Next() {
		i, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTopics = `-- name: CountTopics :one
SELECT count(*) FROM topics
`

func (q *Queries) CountTopics(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countTopics)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listTopics = `-- name: ListTopics :many
SELECT ` + topicColumns + `
FROM topics
ORDER BY position
`

func (q *Queries) ListTopics(ctx context.Context) ([]Topic, error) {
	rows, err := q.db.Query(ctx, listTopics)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

const listTopicsByYear = `-- name: ListTopicsByYear :many
SELECT ` + topicColumns + `
FROM topics
WHERE year_level = $1
ORDER BY position
`

func (q *Queries) ListTopicsByYear(ctx context.Context, yearLevel int32) ([]Topic, error) {
	rows, err := q.db.Query(ctx, listTopicsByYear, yearLevel)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

const getTopic = `-- name: GetTopic :one
SELECT ` + topicColumns + `
FROM topics
WHERE id = $1
`

func (q *Queries) GetTopic(ctx context.Context, id string) (Topic, error) {
	return scanTopic(q.db.QueryRow(ctx, getTopic, id))
}

type UpsertTopicParams struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Icon      string      `json:"icon"`
	YearLevel int32       `json:"year_level"`
	Category  pgtype.Text `json:"category"`
	Mode      pgtype.Text `json:"mode"`
	Questions []byte      `json:"questions"`
}

const upsertTopic = `-- name: UpsertTopic :one
INSERT INTO topics (id, name, icon, year_level, category, mode, questions)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    name       = EXCLUDED.name,
    icon       = EXCLUDED.icon,
    year_level = EXCLUDED.year_level,
    category   = EXCLUDED.category,
    mode       = EXCLUDED.mode,
    questions  = EXCLUDED.questions,
    updated_at = now()
RETURNING ` + topicColumns + `
`

// UpsertTopic inserts or fully replaces a topic. A replaced row keeps its position.
func (q *Queries) UpsertTopic(ctx context.Context, arg UpsertTopicParams) (Topic, error) {
	row := q.db.QueryRow(ctx, upsertTopic,
		arg.ID,
		arg.Name,
		arg.Icon,
		arg.YearLevel,
		arg.Category,
		arg.Mode,
		arg.Questions,
	)
	return scanTopic(row)
}

const insertTopicIfAbsent = `-- name: InsertTopicIfAbsent :execrows
INSERT INTO topics (id, name, icon, year_level, category, mode, questions)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`

// InsertTopicIfAbsent is used by seeding so concurrent seeders never overwrite each other.
func (q *Queries) InsertTopicIfAbsent(ctx context.Context, arg UpsertTopicParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertTopicIfAbsent,
		arg.ID,
		arg.Name,
		arg.Icon,
		arg.YearLevel,
		arg.Category,
		arg.Mode,
		arg.Questions,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteTopic = `-- name: DeleteTopic :exec
DELETE FROM topics WHERE id = $1
`

func (q *Queries) DeleteTopic(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteTopic, id)
	return err
}

type CountTopicsByYearRow struct {
	YearLevel  int32 `json:"year_level"`
	TopicCount int64 `json:"topic_count"`
}

const countTopicsByYear = `-- name: CountTopicsByYear :many
SELECT year_level, count(*) AS topic_count
FROM topics
GROUP BY year_level
ORDER BY year_level
`

func (q *Queries) CountTopicsByYear(ctx context.Context) ([]CountTopicsByYearRow, error) {
	rows, err := q.db.Query(ctx, countTopicsByYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountTopicsByYearRow
	for rows.Next() {
		var i CountTopicsByYearRow
		if err := rows.Scan(&i.YearLevel, &i.TopicCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
