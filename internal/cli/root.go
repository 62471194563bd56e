// Package cli implements the maths-quiz terminal client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/maths-quiz/internal/client"
	"github.com/gokatarajesh/maths-quiz/internal/config"
	"github.com/gokatarajesh/maths-quiz/internal/logging"
	"github.com/gokatarajesh/maths-quiz/internal/progress"
)

// Options lets callers swap the terminal and storage, mainly for tests.
type Options struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Backend replaces the SQLite progress file.
	Backend progress.Backend
	Rand    func() *rand.Rand
	Now     func() time.Time
	// RunProgram runs the interactive quiz and worksheet screens. Defaults to Bubble Tea.
	RunProgram ProgramRunner
}

// globalFlags override the matching MATHSQUIZ_* settings when set.
type globalFlags struct {
	api     string
	db      string
	tz      string
	redis   string
	timeout time.Duration
	verbose bool
}

type app struct {
	opts   Options
	flags  globalFlags
	cfg    *config.Client
	logger zerolog.Logger
	api    *client.Client
	loc    *time.Location

	progress *progress.Service
	closers  []func() error
}

// Execute runs the CLI against the real terminal.
func Execute(ctx context.Context) error {
	// Strip or downsample colour to what the terminal supports. Bubble Tea
	// programs write to the terminal directly and do their own downsampling.
	out := colorprofile.NewWriter(os.Stdout, os.Environ())
	root, a := newRoot(Options{
		Out: out,
		RunProgram: func(ctx context.Context, m tea.Model, in io.Reader, _ io.Writer) (tea.Model, error) {
			return runTeaProgram(ctx, m, in, os.Stdout)
		},
	})
	defer a.close()
	return root.ExecuteContext(ctx)
}

func newRoot(opts Options) (*cobra.Command, *app) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.Rand == nil {
		opts.Rand = func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunProgram == nil {
		opts.RunProgram = runTeaProgram
	}
	a := &app{opts: opts, logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:           "maths-quiz",
		Short:         "GCSE maths practice in the terminal",
		Long:          "maths-quiz runs timed quizzes, study sessions, worksheets and numeracy drills against the maths-quiz API, keeping your progress in a local file or a shared Redis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.api, "api", "", "API base URL (overrides MATHSQUIZ_API)")
	pf.StringVar(&a.flags.db, "db", "", "Path to SQLite progress file (overrides MATHSQUIZ_DB)")
	pf.StringVar(&a.flags.tz, "tz", "", "Timezone used to count streak days (overrides MATHSQUIZ_TZ)")
	pf.StringVar(&a.flags.redis, "redis", "", "Keep progress in this Redis instead of the local file (overrides MATHSQUIZ_REDIS_ADDR)")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "HTTP request timeout (overrides MATHSQUIZ_TIMEOUT)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newTopicsCmd(a),
		newYearsCmd(a),
		newPlayCmd(a),
		newCustomCmd(a),
		newWorksheetCmd(a),
		newDrillsCmd(a),
		newStatsCmd(a),
		newReviewCmd(a),
		newSettingsCmd(a),
		newResetCmd(a),
		newAdminCmd(a),
	)
	return root, a
}

// setup loads client config and applies flag overrides.
func (a *app) setup() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if a.flags.api != "" {
		cfg.APIBaseURL = a.flags.api
	}
	if a.flags.db != "" {
		cfg.DBPath = a.flags.db
	}
	if a.flags.tz != "" {
		cfg.Timezone = a.flags.tz
	}
	if a.flags.redis != "" {
		cfg.RedisAddr = a.flags.redis
	}
	if a.flags.timeout > 0 {
		cfg.RequestTimeout = a.flags.timeout
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.loc = loc
	a.logger = logging.NewCLI(a.opts.Err, a.flags.verbose)
	a.api = client.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.RequestTimeout})
	if cfg.AdminToken != "" {
		a.api = a.api.WithToken(cfg.AdminToken)
	}
	return nil
}

// progressService opens the progress store on first use.
func (a *app) progressService(ctx context.Context) (*progress.Service, error) {
	if a.progress != nil {
		return a.progress, nil
	}

	backend := a.opts.Backend
	if backend == nil {
		path := a.cfg.DBPath
		if path == "" {
			p, err := progress.DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve progress path: %w", err)
			}
			path = p
		} else if err := progress.EnsureDir(path); err != nil {
			return nil, fmt.Errorf("create progress dir: %w", err)
		}

		sqlite, err := progress.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlite.Close)
		a.logger.Debug().Str("path", path).Msg("progress store opened")
		backend = sqlite
	}

	if a.cfg.RedisAddr != "" {
		remote, err := a.openRedisProgress(ctx, backend)
		if err != nil {
			return nil, err
		}
		backend = remote
	}

	a.progress = a.newProgress(backend)
	return a.progress, nil
}

func (a *app) newProgress(backend progress.Backend) *progress.Service {
	return progress.NewService(backend, a.logger, progress.Options{
		Location: a.loc,
		Now:      a.opts.Now,
	})
}

// openRedisProgress namespaces shared progress by client id. Without MATHSQUIZ_CLIENT_ID
// the id kept in the local store is used, so each machine keeps one identity.
func (a *app) openRedisProgress(ctx context.Context, local progress.Backend) (*progress.RedisBackend, error) {
	id := a.cfg.ClientID
	if id == "" {
		var err error
		if id, err = a.newProgress(local).ClientID(ctx); err != nil {
			return nil, fmt.Errorf("resolve client id: %w", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr, DB: a.cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect progress redis %s: %w", a.cfg.RedisAddr, err)
	}
	a.closers = append(a.closers, rdb.Close)

	backend := progress.NewRedisBackend(rdb, id)
	if err := backend.Set(ctx, progress.KeyClientID, []byte(id)); err != nil {
		return nil, fmt.Errorf("save client id: %w", err)
	}
	a.logger.Debug().Str("addr", a.cfg.RedisAddr).Str("client_id", id).Msg("progress store opened")
	return backend, nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) out() io.Writer {
	return a.opts.Out
}
