package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/g960059/sadb/internal/bridge"
	"github.com/g960059/sadb/internal/config"
	"github.com/g960059/sadb/internal/db"
	"github.com/g960059/sadb/internal/dispatch"
	"github.com/g960059/sadb/internal/model"
	"github.com/g960059/sadb/internal/parse"
	"github.com/g960059/sadb/internal/selector"
	"github.com/g960059/sadb/internal/workflow"
)

// Deps overrides the collaborators a Runner talks to. Zero values select the
// real implementations.
type Deps struct {
	In         io.Reader
	Out        io.Writer
	ErrOut     io.Writer
	Bridge     bridge.Runner
	Chooser    selector.Chooser
	LoadConfig func(path string) (config.Config, error)
	Sleep      func(time.Duration)
	Interrupts workflow.InterruptFunc
	WriteFile  func(name string, data []byte, perm os.FileMode) error
	Now        func() time.Time
}

type Runner struct {
	deps   Deps
	out    io.Writer
	errOut io.Writer
}

func NewRunner(out, errOut io.Writer) *Runner {
	return NewRunnerWithDeps(Deps{Out: out, ErrOut: errOut})
}

func NewRunnerWithDeps(deps Deps) *Runner {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.ErrOut == nil {
		deps.ErrOut = os.Stderr
	}
	if deps.In == nil {
		deps.In = os.Stdin
	}
	if deps.LoadConfig == nil {
		deps.LoadConfig = config.Load
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Runner{deps: deps, out: deps.Out, errOut: deps.ErrOut}
}

// Run executes one command line and returns the process exit code:
// 0 on success or an empty result, 1 on a failed command, 2 on a usage error.
func (r *Runner) Run(ctx context.Context, args []string) int {
	g := &globals{}
	root := r.rootCommand(g)
	root.SetArgs(args)
	root.SetIn(r.deps.In)
	root.SetOut(r.out)
	root.SetErr(r.errOut)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(r.errOut, "error: %v\n", err)
	if !g.started {
		return 2
	}
	return 1
}

type globals struct {
	configPath string
	adbPath    string
	logLevel   string
	noHistory  bool
	started    bool
}

// session holds the collaborators for a single command invocation.
type session struct {
	cfg        config.Config
	log        *log.Logger
	client     *bridge.Client
	dispatcher *dispatch.Dispatcher
	workflows  *workflow.Service
	store      *db.Store
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func (r *Runner) newSession(ctx context.Context, g *globals, withHistory bool) (*session, error) {
	cfg, err := r.deps.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.adbPath != "" {
		cfg.ADBPath = g.adbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.noHistory {
		cfg.HistoryEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(r.errOut, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	runner := r.deps.Bridge
	if runner == nil {
		osRunner := bridge.NewOSRunner()
		osRunner.Stdin = r.deps.In
		osRunner.Stdout = r.out
		osRunner.Stderr = r.errOut
		runner = osRunner
	}
	client := bridge.NewClientWithRunner(cfg, runner, logger)

	s := &session{cfg: cfg, log: logger, client: client}
	var journal dispatch.Journal
	if withHistory && cfg.HistoryEnabled {
		store, err := r.openStore(ctx, cfg)
		if err != nil {
			logger.Warn("history disabled", "err", err)
		} else {
			s.store = store
			journal = store
			if n, err := store.PruneRuns(ctx, r.deps.Now().Add(-cfg.HistoryRetention)); err != nil {
				logger.Warn("prune history", "err", err)
			} else if n > 0 {
				logger.Debug("pruned history", "rows", n)
			}
		}
	}
	s.dispatcher = dispatch.NewDispatcher(client, journal, logger)
	s.workflows = workflow.NewService(client, s.dispatcher, workflow.Options{
		Out:        r.out,
		In:         r.deps.In,
		Logger:     logger,
		WriteFile:  r.deps.WriteFile,
		Sleep:      r.deps.Sleep,
		Interrupts: r.deps.Interrupts,
	})
	return s, nil
}

func (r *Runner) openStore(ctx context.Context, cfg config.Config) (*db.Store, error) {
	store, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(ctx, store.DB()); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (r *Runner) chooser() selector.Chooser {
	if r.deps.Chooser != nil {
		return r.deps.Chooser
	}
	return &selector.TeaChooser{In: r.deps.In, Out: r.errOut}
}

// selectTarget enumerates devices and resolves a selection. A nil selection
// with a nil error means there was nothing to select.
func (r *Runner) selectTarget(ctx context.Context, s *session, allowAll bool) (model.Selection, error) {
	raw, err := s.client.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connected devices: %w", err)
	}
	devices := parse.Devices(raw)
	sel, err := selector.Select(ctx, devices, allowAll, r.chooser())
	if err != nil {
		return nil, err
	}
	if sel == nil {
		_, _ = fmt.Fprintln(r.out, "No devices found")
		return nil, nil
	}
	return sel, nil
}

func newLogger(w io.Writer, level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalid, level)
	}
	return log.NewWithOptions(w, log.Options{Level: lvl}), nil
}
