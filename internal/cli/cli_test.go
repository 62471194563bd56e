package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/maths-quiz/internal/achievement"
	"github.com/gokatarajesh/maths-quiz/internal/auth"
	"github.com/gokatarajesh/maths-quiz/internal/progress"
	"github.com/gokatarajesh/maths-quiz/internal/topic"
	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
	httperrors "github.com/gokatarajesh/maths-quiz/pkg/http/errors"
)

const adminPassword = "correct horse"

// Every question has a single option so answering 1 is always right.
func oneOptionTopic(id, name string, year, n int, mode topic.Mode) topic.Topic {
	t := topic.Topic{ID: id, Name: name, Icon: topic.IconVariable, YearLevel: year, Mode: mode}
	for i := range n {
		t.Questions = append(t.Questions, topic.Question{
			ID:          id + "-" + string(rune('a'+i)),
			Prompt:      name + " question " + string(rune('A'+i)),
			Options:     []string{"4"},
			Explanation: "because four",
		})
	}
	return t
}

var testTopics = []topic.Topic{
	oneOptionTopic("algebra-9", "Algebra", 9, 2, ""),
	oneOptionTopic("angles-7", "Angles", 7, 3, topic.ModeStudy),
	oneOptionTopic("ratio-8", "Ratio", 8, 4, ""),
}

type listSource struct{}

func (listSource) List(context.Context) ([]topic.Topic, error) { return testTopics, nil }

type apiCalls struct {
	imports []string
	auth    []string
}

func newTestAPI(t *testing.T) (*httptest.Server, *apiCalls) {
	t.Helper()
	calls := &apiCalls{}
	sheets := worksheet.NewHTTPHandler(listSource{}, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/topics", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, testTopics)
	})
	mux.HandleFunc("GET /api/topics/{topicId}", func(w http.ResponseWriter, r *http.Request) {
		for _, tp := range testTopics {
			if tp.ID == r.PathValue("topicId") {
				httperrors.RespondJSON(w, http.StatusOK, tp)
				return
			}
		}
		httperrors.RespondNotFound(w, httperrors.ErrCodeTopicNotFound, "Topic not found")
	})
	mux.HandleFunc("GET /api/topics/year/{year}", func(w http.ResponseWriter, r *http.Request) {
		var out []topic.Topic
		for _, tp := range testTopics {
			if r.PathValue("year") == "7" && tp.YearLevel == 7 {
				out = append(out, tp)
			}
		}
		httperrors.RespondJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/year-levels", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, []topic.YearLevelSummary{
			{Year: 7, Grade: "Year 7", TopicCount: 1},
			{Year: 9, Grade: "Year 9", TopicCount: 1},
		})
	})
	mux.HandleFunc("GET /api/worksheets", sheets.Worksheet)
	mux.HandleFunc("GET /api/drills", sheets.Drills)
	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != adminPassword {
			httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid password")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, auth.TokenResponse{AccessToken: "tok-123", TokenType: "Bearer"})
	})
	mux.HandleFunc("POST /api/topics/{topicId}/import", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls.imports = append(calls.imports, r.PathValue("topicId")+"?"+r.URL.RawQuery+"|"+string(body))
		calls.auth = append(calls.auth, r.Header.Get("Authorization"))
		httperrors.RespondJSON(w, http.StatusOK, topic.ImportResult{
			Topic:   topic.Topic{ID: "new-topic", Name: r.URL.Query().Get("name")},
			Added:   2,
			Skipped: 1,
			Created: r.PathValue("topicId") == topic.NewTopicPathID,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, calls
}

type harness struct {
	api     *httptest.Server
	calls   *apiCalls
	backend *progress.MemoryBackend
	now     time.Time
	// frames holds every screen the last interactive run rendered.
	frames []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("MATHSQUIZ_ADMIN_TOKEN", "")
	t.Setenv("MATHSQUIZ_REDIS_ADDR", "")
	t.Setenv("MATHSQUIZ_CLIENT_ID", "")
	srv, calls := newTestAPI(t)
	return &harness{
		api:     srv,
		calls:   calls,
		backend: progress.NewMemoryBackend(),
		now:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

// screen is implemented by the interactive models.
type screen interface {
	tea.Model
	render() string
	finished() bool
}

func keyPress(r rune) tea.KeyPressMsg {
	if r == '\n' {
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	}
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

// scripted replaces the terminal with one key press per rune of keys. Ticks never
// fire, so the quiz clock only moves in model tests.
func (h *harness) scripted(keys string) ProgramRunner {
	return func(_ context.Context, m tea.Model, _ io.Reader, out io.Writer) (tea.Model, error) {
		h.frames = nil
		frame := func(m tea.Model) screen {
			sc := m.(screen)
			h.frames = append(h.frames, sc.render())
			fmt.Fprintln(out, sc.render())
			return sc
		}
		m.Init()
		sc := frame(m)
		for _, r := range keys {
			if sc.finished() {
				break
			}
			m, _ = m.Update(keyPress(r))
			sc = frame(m)
		}
		return m, nil
	}
}

func (h *harness) run(t *testing.T, keys string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	seed := uint64(7)
	root, a := newRoot(Options{
		In:      strings.NewReader(keys),
		Out:     &out,
		Err:     &errOut,
		Backend: h.backend,
		Rand: func() *rand.Rand {
			seed++
			return rand.New(rand.NewPCG(seed, 1))
		},
		Now:        func() time.Time { return h.now },
		RunProgram: h.scripted(keys),
	})
	root.SetArgs(append([]string{"--api", h.api.URL, "--tz", "UTC"}, args...))
	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return out.String(), err
}

func (h *harness) lastFrame() string {
	if len(h.frames) == 0 {
		return ""
	}
	return h.frames[len(h.frames)-1]
}

func (h *harness) progress(t *testing.T) progress.UserProgress {
	t.Helper()
	raw, err := h.backend.Get(context.Background(), progress.KeyProgress)
	require.NoError(t, err)
	var p progress.UserProgress
	require.NoError(t, json.Unmarshal(raw, &p))
	return p
}

func TestTopicsAndYears(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "topics")
	require.NoError(t, err)
	assert.Contains(t, out, "algebra-9")
	assert.Contains(t, out, "ratio-8")
	assert.Contains(t, out, "3 topics")

	out, err = h.run(t, "", "topics", "--year", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "angles-7")
	assert.NotContains(t, out, "ratio-8")

	out, err = h.run(t, "", "years")
	require.NoError(t, err)
	assert.Contains(t, out, "Year 9")
}

func TestPlayPerfectQuizRecordsResult(t *testing.T) {
	h := newHarness(t)

	// answer, continue, answer, continue, finish without retry
	out, err := h.run(t, "1\n1\n\n", "play", "algebra-9")
	require.NoError(t, err)
	assert.Contains(t, out, "Algebra · Quiz · Foundation")
	assert.Contains(t, out, "Question 2/2")
	assert.Contains(t, out, "Correct!")
	assert.Contains(t, out, "Quiz complete")
	assert.Contains(t, out, "Achievement unlocked!")
	assert.NotContains(t, h.lastFrame(), "r retry", "the finished screen drops the prompt")

	p := h.progress(t)
	require.Len(t, p.QuizHistory, 1)
	r := p.QuizHistory[0]
	assert.Equal(t, "algebra-9", r.TopicID)
	assert.Equal(t, 2, r.Score)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, p.Streak)
	assert.ElementsMatch(t, []achievement.ID{achievement.FirstQuiz, achievement.PerfectScore}, p.Achievements)
}

func TestPlayRetryRecordsEachAttempt(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "1\n1\nr1\n1\n\n", "play", "algebra-9")
	require.NoError(t, err)
	assert.Len(t, h.progress(t).QuizHistory, 2)
}

func TestPlayFinishEarlyRecordsMistakes(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "f\n", "play", "ratio-8")
	require.NoError(t, err)
	assert.Contains(t, out, "(no answer)")

	p := h.progress(t)
	require.Len(t, p.QuizHistory, 1)
	assert.Equal(t, 0, p.QuizHistory[0].Score)
	assert.Equal(t, 4, p.QuizHistory[0].Total)
	assert.Len(t, p.QuizHistory[0].Mistakes, 4)
}

func TestPlayQuitDiscardsAttempt(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "1\nq", "play", "ratio-8")
	require.NoError(t, err)
	assert.Contains(t, out, "Question 2/4")
	assert.Contains(t, h.lastFrame(), "Session discarded.")

	_, err = h.backend.Get(context.Background(), progress.KeyProgress)
	assert.ErrorIs(t, err, progress.ErrKeyNotFound)
}

func TestPlayUsesTopicModeAndFlags(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "q", "play", "angles-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Angles · Study")
	assert.NotContains(t, out, "⏱")

	out, err = h.run(t, "q", "play", "angles-7", "--mode", "quiz", "--tier", "higher")
	require.NoError(t, err)
	assert.Contains(t, out, "Angles · Quiz · Higher")
	assert.Contains(t, out, "⏱ 5:00")

	_, err = h.run(t, "", "play", "angles-7", "--mode", "exam")
	assert.ErrorContains(t, err, `unknown mode "exam"`)

	_, err = h.run(t, "", "play", "missing")
	assert.ErrorContains(t, err, `no topic "missing"`)
}

func TestPlayStudyModeSetting(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "settings", "--study-mode", "--difficulty", "higher")
	require.NoError(t, err)
	assert.Contains(t, out, "difficulty  higher")
	assert.Contains(t, out, "study mode  true")

	out, err = h.run(t, "q", "play", "algebra-9")
	require.NoError(t, err)
	assert.Contains(t, out, "Algebra · Study · Higher")

	_, err = h.run(t, "", "settings", "--difficulty", "expert")
	assert.Error(t, err)
}

func TestCustomQuiz(t *testing.T) {
	h := newHarness(t)

	keys := strings.Repeat("1\n", 5) + "\n"
	out, err := h.run(t, keys, "custom", "algebra-9", "ratio-8", "--count", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Custom Quiz · Quiz")

	p := h.progress(t)
	require.Len(t, p.QuizHistory, 1)
	assert.Equal(t, customTopicID, p.QuizHistory[0].TopicID)
	assert.Equal(t, 5, p.QuizHistory[0].Total)
	assert.Equal(t, 5, p.QuizHistory[0].Score)

	_, err = h.run(t, "", "custom", "algebra-9", "--count", "31")
	assert.ErrorContains(t, err, "between 5 and 30")
}

func TestWorksheetLocalAndRemote(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "worksheet", "ratio-8", "--count", "3", "--answers")
	require.NoError(t, err)
	assert.Contains(t, out, "Worksheet (3 questions)")
	assert.Equal(t, 3, strings.Count(out, "Answer: 4"))

	out, err = h.run(t, "", "worksheet", "algebra-9", "ratio-8", "--mode", "starter", "--remote")
	require.NoError(t, err)
	assert.Contains(t, out, "Starter (2 questions)")
	assert.NotContains(t, out, "Answer:")

	_, err = h.run(t, "", "worksheet", "ratio-8", "--mode", "exam")
	assert.Error(t, err)
}

func TestWorksheetCSV(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "sheet.csv")

	out, err := h.run(t, "", "worksheet", "algebra-9", "--csv", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 questions")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#,Topic,Question,Answer,Explanation", lines[0])
}

func TestWorksheetInteractive(t *testing.T) {
	h := newHarness(t)

	// toggle 1, bad key, reveal all, hide all, regenerate, quit
	_, err := h.run(t, "19ahrq", "worksheet", "ratio-8", "--count", "2", "-i")
	require.NoError(t, err)

	counts := make([]int, 0, len(h.frames))
	for _, f := range h.frames {
		counts = append(counts, strings.Count(f, "Answer: 4"))
	}
	assert.Equal(t, []int{0, 1, 1, 2, 0, 0, 0}, counts)
	assert.Contains(t, h.frames[2], "Enter a number from 1 to 2.")
}

func TestDrills(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "drills")
	require.NoError(t, err)
	assert.Contains(t, out, "fractions")
	assert.Contains(t, out, "Mental Arithmetic")

	out, err = h.run(t, "", "drills", "arithmetic", "powers", "--count", "6", "--answers")
	require.NoError(t, err)
	assert.Contains(t, out, "Numeracy Drills (6 questions)")
	assert.Equal(t, 6, strings.Count(out, "Answer:"))

	out, err = h.run(t, "", "drills", "decimals", "--remote", "--count", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Numeracy Drills (3 questions)")

	_, err = h.run(t, "", "drills", "calculus")
	assert.ErrorIs(t, err, worksheet.ErrUnknownDrillTopic)
}

func TestStatsReviewAndReset(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "review")
	require.NoError(t, err)
	assert.Contains(t, out, "No mistakes to review.")

	_, err = h.run(t, "f\n", "play", "algebra-9")
	require.NoError(t, err)

	out, err = h.run(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Quizzes taken   1")
	assert.Contains(t, out, "Getting Started")
	assert.Contains(t, out, "🔒 Perfect Score")

	out, err = h.run(t, "", "review", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "[Algebra]"))

	_, err = h.run(t, "", "reset")
	assert.ErrorContains(t, err, "--yes")
	assert.Len(t, h.progress(t).QuizHistory, 1)

	out, err = h.run(t, "", "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress cleared.")
	_, err = h.backend.Get(context.Background(), progress.KeyProgress)
	assert.ErrorIs(t, err, progress.ErrKeyNotFound)
}

func TestAdminLoginAndImport(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, adminPassword+"\n", "admin", "login")
	require.NoError(t, err)
	assert.Equal(t, "tok-123\n", out)

	_, err = h.run(t, "", "admin", "login", "--password", "nope")
	assert.ErrorContains(t, err, "login_failed")

	path := filepath.Join(t.TempDir(), "q.csv")
	require.NoError(t, os.WriteFile(path, []byte("question,a,b,c,d,answer\n"), 0o644))

	t.Setenv("MATHSQUIZ_ADMIN_TOKEN", "tok-123")
	out, err = h.run(t, "", "admin", "import", "--new", "Surds", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created Surds (new-topic): 2 added, 1 skipped")

	_, err = h.run(t, "", "admin", "import", "ratio-8", path)
	require.NoError(t, err)

	require.Len(t, h.calls.imports, 2)
	assert.True(t, strings.HasPrefix(h.calls.imports[0], topic.NewTopicPathID+"?name=Surds|question,"))
	assert.True(t, strings.HasPrefix(h.calls.imports[1], "ratio-8?|"))
	assert.Equal(t, []string{"Bearer tok-123", "Bearer tok-123"}, h.calls.auth)

	_, err = h.run(t, "", "admin", "import", "ratio-8")
	assert.Error(t, err)
}

func TestBarAndClock(t *testing.T) {
	assert.Equal(t, "0:00", clock(-3))
	assert.Equal(t, "4:05", clock(245))
	assert.Contains(t, bar(50, 10), " 50%")
	assert.Contains(t, bar(150, 4), "100%")
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}

func TestAdminHashPassword(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "s3cret-pass\n", "admin", "hash-password")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	require.NoError(t, auth.CheckHash(hash))
	assert.NoError(t, auth.VerifyPassword(hash, "s3cret-pass"))

	_, err = h.run(t, "", "admin", "hash-password", "--password", "short")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestProgressInSharedRedis(t *testing.T) {
	h := newHarness(t)
	mr := miniredis.RunT(t)
	ctx := context.Background()

	_, err := h.run(t, "1\n1\n\n", "--redis", mr.Addr(), "play", "algebra-9")
	require.NoError(t, err)

	// The local store keeps the identity; results live under it in Redis.
	id, err := h.backend.Get(ctx, progress.KeyClientID)
	require.NoError(t, err)
	_, err = h.backend.Get(ctx, progress.KeyProgress)
	assert.ErrorIs(t, err, progress.ErrKeyNotFound)

	raw, err := mr.Get("progress:" + string(id) + ":" + progress.KeyProgress)
	require.NoError(t, err)
	var p progress.UserProgress
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Len(t, p.QuizHistory, 1)
	assert.Equal(t, "algebra-9", p.QuizHistory[0].TopicID)

	out, err := h.run(t, "", "--redis", mr.Addr(), "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Quizzes taken   1")

	t.Setenv("MATHSQUIZ_CLIENT_ID", "user_shared")
	_, err = h.run(t, "f\n", "--redis", mr.Addr(), "play", "ratio-8")
	require.NoError(t, err)
	assert.True(t, mr.Exists("progress:user_shared:"+progress.KeyProgress))
	shared, err := mr.Get("progress:user_shared:" + progress.KeyClientID)
	require.NoError(t, err)
	assert.Equal(t, "user_shared", shared)

	mr.Close()
	_, err = h.run(t, "", "--redis", mr.Addr(), "stats")
	assert.ErrorContains(t, err, "connect progress redis")
}
