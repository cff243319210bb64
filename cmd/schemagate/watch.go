package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"schemagate/internal/paths"
	"schemagate/internal/registry"
	"schemagate/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var manifest string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-test subjects when their schema files change",
		Long: `Watch every schema file registered in the manifest and re-run
'schemagate subjects test' for the subjects whose files changed. Edits to
the manifest itself reload it and re-test every subject.

Runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := registry.ManifestPath(a.root)
			if manifest != "" {
				path = paths.JoinRoot(a.root, manifest)
			}

			ctx, stop := signal.NotifyContext(a.context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, path)
		},
	}
	cmd.Flags().StringVar(&manifest, "manifest", "", "Manifest path (default <dir>/schemagate.toml)")
	return cmd
}

// watch blocks until ctx is done.
func (a *app) watch(ctx context.Context, manifestPath string) error {
	m, err := registry.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	manifestAbs, err := filepath.Abs(manifestPath)
	if err != nil {
		return err
	}

	cfg := watcher.DefaultConfig()
	cfg.DebounceMs = a.cfg.Watch.DebounceMs
	cfg.Patterns = append(append([]string{}, a.cfg.Watch.Patterns...), filepath.Base(manifestAbs))

	batches := make(chan []watcher.Event, 8)
	w, err := watcher.New(cfg, a.logger, func(events []watcher.Event) {
		select {
		case batches <- events:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.AddFile(manifestAbs); err != nil {
		return err
	}
	count := 0
	for _, s := range m.Subjects {
		for _, v := range s.Versions {
			if err := w.AddFile(paths.JoinRoot(a.root, v.Path)); err != nil {
				return err
			}
			count++
		}
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stderr, "Watching %d schema file(s) of %d subject(s). Press Ctrl+C to stop.\n", count, len(m.Subjects))

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-batches:
			changed := watcher.Paths(events)
			if slices.Contains(changed, manifestAbs) {
				reloaded, err := registry.LoadManifest(manifestPath)
				if err != nil {
					a.logger.Warn("Manifest reload failed", "error", err.Error())
					continue
				}
				m = reloaded
				for _, s := range m.Subjects {
					for _, v := range s.Versions {
						if err := w.AddFile(paths.JoinRoot(a.root, v.Path)); err != nil {
							a.logger.Warn("Failed to watch schema", "path", v.Path, "error", err.Error())
						}
					}
				}
				a.retest(ctx, m, allSubjects(m))
				continue
			}

			var subjects []*registry.Subject
			seen := map[string]bool{}
			for _, p := range changed {
				for _, s := range m.SubjectsForPath(a.root, p) {
					if !seen[s.Name] {
						seen[s.Name] = true
						subjects = append(subjects, s)
					}
				}
			}
			a.retest(ctx, m, subjects)
		}
	}
}

func (a *app) retest(ctx context.Context, m *registry.Manifest, subjects []*registry.Subject) {
	for _, s := range subjects {
		resp, err := a.testSubject(ctx, m, s, false)
		if err != nil {
			reportError(a.stderr, err)
			continue
		}
		if err := a.recordTest(ctx, resp); err != nil {
			a.logger.Warn("Failed to record verdict", "subject", s.Name, "error", err.Error())
		}
		if err := a.print(resp); err != nil {
			reportError(a.stderr, err)
		}
	}
}

func allSubjects(m *registry.Manifest) []*registry.Subject {
	out := make([]*registry.Subject, 0, len(m.Subjects))
	for i := range m.Subjects {
		out = append(out, &m.Subjects[i])
	}
	return out
}
