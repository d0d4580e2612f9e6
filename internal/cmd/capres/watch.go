package capres

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"github.com/NigeWarren/dotty/internal/cli"
	"github.com/NigeWarren/dotty/internal/watch"
)

// watch re-resolves scenario files as they change until ctx is cancelled.
// Changes arriving within the debounce window are batched into one run.
// A change to the config file reloads it and resolves every scenario again.
func (r *runner) watch(ctx context.Context, files []string, code int) int {
	w, err := watch.NewWatcher()
	if err != nil {
		cli.Writef(r.stderr, "capres: %v\n", err)
		return cli.ExitError
	}
	defer func() { _ = w.Close() }()

	// Events carry absolute paths; report them under the names given.
	names := make(map[string]string, len(files))
	for _, file := range files {
		if err := w.Add(file); err != nil {
			cli.Writef(r.stderr, "capres: watching %s: %v\n", file, err)
			continue
		}
		if abs, err := filepath.Abs(file); err == nil {
			names[abs] = file
		}
	}
	cfgAbs := ""
	if r.cfgPath != "" {
		if err := w.AddShared(r.cfgPath); err != nil {
			cli.Writef(r.stderr, "capres: watching %s: %v\n", r.cfgPath, err)
		}
		cfgAbs, _ = filepath.Abs(r.cfgPath)
	}

	cli.Writef(r.stdout, "\nWatching %d scenario file(s). Press Ctrl+C to stop.\n", len(w.WatchedFiles()))

	var (
		timer    *time.Timer
		fire     <-chan time.Time
		pending  = make(map[string]bool)
		reloaded bool
	)
	for {
		select {
		case <-ctx.Done():
			cli.Writeln(r.stdout, "\nStopping watch mode.")
			return code

		case ev := <-w.Events:
			if ev.File == cfgAbs {
				reloaded = true
			}
			for _, abs := range ev.Affected {
				pending[abs] = true
			}
			if timer == nil {
				timer = time.NewTimer(r.cfg.Watch.Debounce.Duration)
			} else {
				timer.Reset(r.cfg.Watch.Debounce.Duration)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			announce := !reloaded
			if reloaded {
				reloaded = false
				if err := r.reload(); err != nil {
					cli.Writef(r.stderr, "capres: reloading config: %v\n", err)
					clear(pending)
					continue
				}
				cli.Writef(r.stdout, "\n== %s changed ==\n", r.cfgPath)
			}

			var changed []string
			for abs := range pending {
				if name, ok := names[abs]; ok {
					changed = append(changed, name)
				}
			}
			clear(pending)
			slices.Sort(changed)
			if len(changed) == 0 {
				continue
			}
			if announce {
				for _, name := range changed {
					cli.Writef(r.stdout, "\n== %s changed ==\n", name)
				}
			}
			r.logger.Debug("re-resolving", "files", len(changed))
			code = r.run(ctx, changed)

		case err := <-w.Errors:
			cli.Writef(r.stderr, "capres: watcher error: %v\n", err)
		}
	}
}
