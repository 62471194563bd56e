package topic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSeedsEmptyStoreOnce(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{})
	ctx := context.Background()

	topics, err := f.svc.List(ctx)
	require.NoError(t, err)

	builtin, err := Builtin()
	require.NoError(t, err)
	require.Len(t, topics, len(builtin))
	assert.Equal(t, "fractions-7", topics[0].ID)
	assert.Equal(t, []ChangeOp{OpSeed}, f.pub.ops())

	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.counts, "seeding check should run once")
}

func TestListSeedingIsGuardedAcrossGoroutines(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.List(context.Background())
		}()
	}
	wg.Wait()

	builtin, _ := Builtin()
	assert.Len(t, f.store.rows, len(builtin))
	assert.Len(t, f.pub.ops(), 1)
}

func TestListDoesNotSeedNonEmptyStore(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{})
	ctx := context.Background()
	_, err := f.svc.repo.Upsert(ctx, mustParams(t, sampleTopic("only", 9)))
	require.NoError(t, err)

	topics, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "only", topics[0].ID)
	assert.Empty(t, f.pub.ops())
}

func TestSeedFailureIsRetried(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{Seed: []Topic{sampleTopic("a", 7)}})
	f.store.failAll = errors.New("db down")

	_, err := f.svc.List(context.Background())
	require.Error(t, err)

	f.store.failAll = nil
	topics, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestListPreservesInsertionOrder(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		_, err := f.svc.Upsert(ctx, sampleTopic(id, 8))
		require.NoError(t, err)
	}
	// replacing keeps the original position
	_, err := f.svc.Upsert(ctx, sampleTopic("c", 8))
	require.NoError(t, err)

	topics, err := f.svc.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(topics))
	for _, tp := range topics {
		ids = append(ids, tp.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})

	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByYearWithAndWithoutCache(t *testing.T) {
	for name, cache := range map[string]func(t *testing.T) ListCache{
		"no cache":    func(*testing.T) ListCache { return nil },
		"redis cache": func(t *testing.T) ListCache { return NewCache(newRedis(t), 0) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, cache(t), ServiceOptions{DisableSeed: true})
			ctx := context.Background()
			for _, tp := range []Topic{sampleTopic("a", 7), sampleTopic("b", 9), sampleTopic("c", 7)} {
				_, err := f.svc.Upsert(ctx, tp)
				require.NoError(t, err)
			}

			topics, err := f.svc.ListByYear(ctx, 7)
			require.NoError(t, err)
			require.Len(t, topics, 2)
			assert.Equal(t, "a", topics[0].ID)
			assert.Equal(t, "c", topics[1].ID)

			empty, err := f.svc.ListByYear(ctx, 11)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestYearLevelsCoversEveryYear(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()
	for _, tp := range []Topic{sampleTopic("a", 7), sampleTopic("b", 9), sampleTopic("c", 9)} {
		_, err := f.svc.Upsert(ctx, tp)
		require.NoError(t, err)
	}

	levels, err := f.svc.YearLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []YearLevelSummary{
		{Year: 7, Grade: "Year 7", TopicCount: 1},
		{Year: 8, Grade: "Year 8", TopicCount: 0},
		{Year: 9, Grade: "Year 9 GCSE", TopicCount: 2},
		{Year: 10, Grade: "Year 10 GCSE", TopicCount: 0},
		{Year: 11, Grade: "Year 11 GCSE", TopicCount: 0},
	}, levels)
}

func TestUpsertValidatesBeforeStorage(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})

	bad := sampleTopic("a", 7)
	bad.Name = ""
	_, err := f.svc.Upsert(context.Background(), bad)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
	assert.Empty(t, f.store.rows)
	assert.Empty(t, f.pub.ops())
}

func TestUpsertReplacesNotMerges(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()

	first := sampleTopic("a", 7)
	first.Category = "Number"
	_, err := f.svc.Upsert(ctx, first)
	require.NoError(t, err)

	second := sampleTopic("a", 8)
	second.Questions = nil
	saved, err := f.svc.Upsert(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 8, saved.YearLevel)
	assert.Empty(t, saved.Category)
	assert.Empty(t, saved.Questions)
}

func TestReplaceRejectsIDMismatch(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})

	_, err := f.svc.Replace(context.Background(), "a", sampleTopic("b", 7))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Topic ID mismatch", verr.Message)
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()
	_, err := f.svc.Upsert(ctx, sampleTopic("a", 7))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "a"))
	require.NoError(t, f.svc.Delete(ctx, "a"))

	_, err = f.svc.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []ChangeOp{OpUpsert, OpDelete, OpDelete}, f.pub.ops())
}

func TestWritesInvalidateCache(t *testing.T) {
	cache := NewCache(newRedis(t), 0)
	f := newFixture(t, cache, ServiceOptions{DisableSeed: true})
	ctx := context.Background()

	_, err := f.svc.Upsert(ctx, sampleTopic("a", 7))
	require.NoError(t, err)
	topics, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 1)

	_, ok, err := cache.GetAll(ctx)
	require.NoError(t, err)
	require.True(t, ok, "list should populate the cache")

	_, err = f.svc.Upsert(ctx, sampleTopic("b", 7))
	require.NoError(t, err)
	_, ok, err = cache.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "write should invalidate the cache")

	topics, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

// pausingCache holds SetAll until release is closed.
type pausingCache struct {
	*Cache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *pausingCache) SetAll(ctx context.Context, gen int64, topics []Topic) (bool, error) {
	c.once.Do(func() {
		close(c.entered)
		<-c.release
	})
	return c.Cache.SetAll(ctx, gen, topics)
}

func TestWriteDuringListLoadIsNotMasked(t *testing.T) {
	cache := &pausingCache{
		Cache:   NewCache(newRedis(t), 0),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFixture(t, cache, ServiceOptions{DisableSeed: true})
	ctx := context.Background()
	_, err := f.svc.Upsert(ctx, sampleTopic("a", 7))
	require.NoError(t, err)

	done := make(chan []Topic, 1)
	go func() {
		topics, _ := f.svc.List(ctx)
		done <- topics
	}()
	<-cache.entered

	_, err = f.svc.Upsert(ctx, sampleTopic("b", 7))
	require.NoError(t, err)
	close(cache.release)
	assert.Len(t, <-done, 1, "the in-flight read saw the list before the write")

	_, ok, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a list read before the write must not be cached")

	topics, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)
}

func TestStorageFailureSurfacesAsError(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	f.store.failAll = errors.New("connection refused")

	_, err := f.svc.Upsert(context.Background(), sampleTopic("a", 7))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestImportCSVAppendsToExistingTopic(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()
	_, err := f.svc.Upsert(ctx, sampleTopic("a", 7))
	require.NoError(t, err)

	csvBody := strings.Join([]string{
		"What is 2+2?,4,3,5,22",
		"too,short",
		",blank,question,row,here",
		"What is 10/2?,5,2,8,20",
	}, "\n")

	res, err := f.svc.ImportCSV(ctx, ImportRequest{TopicID: "a"}, strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Skipped)
	assert.False(t, res.Created)
	require.Len(t, res.Topic.Questions, 3)

	added := res.Topic.Questions[1]
	assert.Equal(t, "What is 2+2?", added.Prompt)
	assert.Equal(t, []string{"4", "3", "5", "22"}, added.Options)
	assert.Equal(t, 0, added.CorrectAnswer)
	assert.Equal(t, "Uploaded by admin.", added.Explanation)
	assert.True(t, strings.HasPrefix(added.ID, "uploaded-"))
	assert.Contains(t, f.pub.ops(), OpImport)
}

func TestImportCSVCreatesTopic(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})

	res, err := f.svc.ImportCSV(context.Background(), ImportRequest{NewTopicName: "Mixed revision"},
		strings.NewReader("Q1,a,b,c,d\n"))
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, strings.HasPrefix(res.Topic.ID, "custom-"))
	assert.Equal(t, "Mixed revision", res.Topic.Name)
	assert.Equal(t, IconDocument, res.Topic.Icon)
	assert.Equal(t, 11, res.Topic.YearLevel)
}

func TestImportCSVErrors(t *testing.T) {
	f := newFixture(t, nil, ServiceOptions{DisableSeed: true})
	ctx := context.Background()

	_, err := f.svc.ImportCSV(ctx, ImportRequest{}, strings.NewReader("Q1,a,b,c,d\n"))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = f.svc.ImportCSV(ctx, ImportRequest{NewTopicName: "x"}, strings.NewReader("short,row\n"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "file", verr.Field)

	_, err = f.svc.ImportCSV(ctx, ImportRequest{TopicID: "missing"}, strings.NewReader("Q1,a,b,c,d\n"))
	assert.ErrorIs(t, err, ErrNotFound)
}
