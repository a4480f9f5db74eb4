package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/stagegen/config"
	"github.com/teranos/stagegen/internal/driver"
	"github.com/teranos/stagegen/logger"
	"golang.org/x/time/rate"
)

// WatchCmd regenerates packages whenever their sources change
var WatchCmd = &cobra.Command{
	Use:   "watch [packages]",
	Short: "Regenerate code when sources change",
	Long: `Run once, then watch the package directories and regenerate a package
whenever one of its Go files changes. Configuration files are watched too;
a changed configuration regenerates every package.

Packages created after the watch started are not picked up.
Press Ctrl+C to stop.`,
	RunE: runWatch,
}

func init() {
	addGenerateFlags(WatchCmd)
}

// watchSession serializes regeneration between source and config events.
type watchSession struct {
	cmd     *cobra.Command
	ctx     context.Context
	limiter *rate.Limiter // nil = unlimited

	mu      sync.Mutex
	cfg     *config.Config
	d       *driver.Driver
	targets []driver.Target
	watcher *config.Watcher
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &watchSession{cmd: cmd, ctx: ctx}
	if err := s.configure(cfg); err != nil {
		return err
	}
	defer func() { s.d.Close() }()

	targets, err := s.d.Expand(ctx, dir, args...)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		pterm.Warning.Println("No Go packages matched")
		return nil
	}
	s.targets = targets

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	dirs := make([]string, 0, len(targets))
	for _, t := range targets {
		dirs = append(dirs, t.Dir)
	}
	w, err := config.NewWatcher(debounce, dirs...)
	if err != nil {
		return err
	}
	defer w.Close()
	s.watcher = w
	w.SetFilter(func(path string) bool {
		return strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go")
	})
	if n := cfg.Watch.MaxRunsPerMinute; n > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
	}
	w.OnChange(func(changed []string) {
		if s.limiter != nil && s.limiter.Wait(ctx) != nil {
			return
		}
		s.regenerate(ctx, changed)
	})

	cw, err := config.WatchFiles(ctx, debounce, s.reload)
	if err != nil {
		logger.Warnw("Config files are not watched", logger.FieldError, err)
	} else {
		defer cw.Close()
	}

	s.regenerate(ctx, nil)
	pterm.Info.Printfln("Watching %d packages (press Ctrl+C to stop)", len(targets))

	if err := w.Run(ctx); err != nil {
		return err
	}
	pterm.Println()
	pterm.Success.Println("Watch stopped")
	return nil
}

// configure replaces the driver with one built from cfg.
func (s *watchSession) configure(cfg *config.Config) error {
	d, err := newDriver(cfg)
	if err != nil {
		return err
	}
	if s.d != nil {
		s.d.Close()
	}
	s.cfg, s.d = cfg, d
	return nil
}

// reload applies a reloaded configuration. The command's flags still win
// over the files.
func (s *watchSession) reload(cfg *config.Config) {
	next := *cfg
	next.Generate.BuildFlags = append([]string(nil), cfg.Generate.BuildFlags...)
	if err := applyGenerateFlags(s.cmd, &next); err != nil {
		pterm.Error.Printfln("Reloaded configuration rejected: %v", err)
		return
	}

	s.mu.Lock()
	err := s.configure(&next)
	s.mu.Unlock()
	if err != nil {
		pterm.Error.Printfln("Reloaded configuration rejected: %v", err)
		return
	}
	pterm.Info.Println("Configuration reloaded, regenerating")
	s.regenerate(s.ctx, nil)
}

// regenerate runs the packages owning changed, or every package when
// changed is nil.
func (s *watchSession) regenerate(ctx context.Context, changed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := affected(s.targets, changed)
	if len(targets) == 0 {
		return
	}
	outcomes, err := s.d.Generate(ctx, targets)
	if err != nil && ctx.Err() != nil {
		return
	}
	if _, err := driver.Write(outcomes, s.cfg.Generate.OutputSuffix, s.watcher.MarkOwnWrite); err != nil {
		pterm.Error.Println(err.Error())
	}
	_ = report(outcomes)
}

// affected returns the targets whose directory holds one of the changed
// files, or all targets when changed is nil.
func affected(targets []driver.Target, changed []string) []driver.Target {
	if changed == nil {
		return targets
	}
	dirs := make(map[string]bool, len(changed))
	for _, c := range changed {
		dirs[filepath.Clean(filepath.Dir(c))] = true
	}
	var out []driver.Target
	for _, t := range targets {
		if dirs[filepath.Clean(t.Dir)] {
			out = append(out, t)
		}
	}
	return out
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
