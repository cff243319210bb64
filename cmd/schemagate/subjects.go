package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"schemagate/internal/chain"
	"schemagate/internal/errors"
	"schemagate/internal/evolution"
	"schemagate/internal/paths"
	"schemagate/internal/registry"
	"schemagate/internal/schema"
	"schemagate/internal/storage"
)

func newSubjectsCmd(a *app) *cobra.Command {
	var manifest string

	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage versioned schema subjects",
		Long: `Subjects are versioned schema streams declared in schemagate.toml. Each
subject has its own compatibility level and an ordered list of versions.

Examples:
  schemagate subjects init payments --level=BACKWARD
  schemagate subjects add order --level=FULL_TRANSITIVE
  schemagate subjects add-version order 1.0.0 schemas/order/v1.json
  schemagate subjects list
  schemagate subjects test order`,
	}
	cmd.PersistentFlags().StringVar(&manifest, "manifest", "", "Manifest path (default <dir>/schemagate.toml)")

	manifestPath := func() string {
		if manifest != "" {
			return paths.JoinRoot(a.root, manifest)
		}
		return registry.ManifestPath(a.root)
	}

	cmd.AddCommand(
		newSubjectsInitCmd(a, manifestPath),
		newSubjectsAddCmd(a, manifestPath),
		newSubjectsAddVersionCmd(a, manifestPath),
		newSubjectsListCmd(a, manifestPath),
		newSubjectsTestCmd(a, manifestPath),
	)
	return cmd
}

func newSubjectsInitCmd(a *app, manifestPath func() string) *cobra.Command {
	var (
		level string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a subject manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := a.levelFlag(level)
			if err != nil {
				return err
			}
			path := manifestPath()
			if _, err := registry.LoadManifest(path); err == nil && !force {
				return errors.NewSchemaGateError(errors.ManifestInvalid,
					fmt.Sprintf("manifest %s already exists", path), nil,
					errors.FixAction{Type: errors.RunCommand, Command: "schemagate subjects init <name> --force", Description: "Overwrite it"})
			}

			m := registry.NewManifest(args[0], lvl)
			if err := m.Save(path); err != nil {
				return err
			}
			a.logger.Info("Manifest created", "path", path, "level", lvl)
			return a.print(&ManifestResponse{Path: path, Message: fmt.Sprintf("Created manifest %q with default level %s", args[0], lvl)})
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Default compatibility level (default from config defaultLevel)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifest")
	return cmd
}

func newSubjectsAddCmd(a *app, manifestPath func() string) *cobra.Command {
	var level, description string
	cmd := &cobra.Command{
		Use:   "add <subject>",
		Short: "Declare a new subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath()
			m, err := registry.LoadManifest(path)
			if err != nil {
				return err
			}
			s, err := m.AddSubject(args[0], level, description)
			if err != nil {
				return err
			}
			if err := m.Validate(); err != nil {
				return err
			}
			if err := m.Save(path); err != nil {
				return err
			}
			a.logger.Info("Subject added", "subject", s.Name, "uid", s.UID)
			return a.print(&ManifestResponse{
				Path:    path,
				Message: fmt.Sprintf("Added subject %q (%s)", s.Name, s.LevelOr(m.Level())),
			})
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Compatibility level (default: manifest default)")
	cmd.Flags().StringVar(&description, "description", "", "Subject description")
	return cmd
}

func newSubjectsAddVersionCmd(a *app, manifestPath func() string) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "add-version <subject> <version> <schema-path>",
		Short: "Register a schema file as a new subject version",
		Long: `Register a schema file as a new version. The file must parse. With --check
the subject's history is tested with the new version before the manifest is
saved, and nothing is written when the check fails.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := manifestPath()
			m, err := registry.LoadManifest(path)
			if err != nil {
				return err
			}

			schemaPath := args[2]
			if filepath.IsAbs(schemaPath) {
				if rel, err := paths.CanonicalizePath(schemaPath, a.root); err == nil && paths.IsWithinRoot(schemaPath, a.root) {
					schemaPath = rel
				}
			}
			if _, err := schema.ParseFile(paths.JoinRoot(a.root, schemaPath)); err != nil {
				return err
			}

			v, err := m.AddVersion(args[0], args[1], schemaPath)
			if err != nil {
				return err
			}
			label := v.Version

			if check {
				s, _ := m.Subject(args[0])
				resp, err := a.testSubject(a.context(), m, s, false)
				if err != nil {
					return err
				}
				if !resp.Report.Compatible {
					if err := a.print(resp); err != nil {
						return err
					}
					return errors.NewSchemaGateError(errors.PolicyViolation,
						fmt.Sprintf("version %s of %s fails %s; manifest not updated", label, args[0], resp.Report.Level), nil)
				}
			}

			if err := m.Save(path); err != nil {
				return err
			}
			a.logger.Info("Version added", "subject", args[0], "version", label, "path", schemaPath)
			return a.print(&ManifestResponse{
				Path:    path,
				Message: fmt.Sprintf("Added %s@%s -> %s", args[0], label, schemaPath),
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Test the subject history before saving")
	return cmd
}

func newSubjectsListCmd(a *app, manifestPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := registry.LoadManifest(manifestPath())
			if err != nil {
				return err
			}
			resp := &SubjectListResponse{
				Name:         m.Name,
				DefaultLevel: m.Level(),
				Subjects:     []SubjectSummary{},
			}
			for _, s := range m.Subjects {
				sum := SubjectSummary{
					Name:        s.Name,
					UID:         s.UID,
					Level:       s.LevelOr(m.Level()),
					Description: s.Description,
					Versions:    len(s.Versions),
				}
				if latest := s.Latest(); latest != nil {
					sum.Latest = latest.Version
				}
				resp.Subjects = append(resp.Subjects, sum)
			}
			return a.print(resp)
		},
	}
}

func newSubjectsTestCmd(a *app, manifestPath func() string) *cobra.Command {
	var audit bool
	cmd := &cobra.Command{
		Use:   "test <subject>",
		Short: "Check a subject's version history against its level",
		Long: `Check the newest version of a subject against its history. Transitive
levels compare the newest version with every earlier one; other levels only
with its predecessor. --audit checks every consecutive pair instead.

Each verdict is recorded in the history database. Exits with code 1 when any
pair fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := registry.LoadManifest(manifestPath())
			if err != nil {
				return err
			}
			s, err := m.Subject(args[0])
			if err != nil {
				return err
			}

			resp, err := a.testSubject(a.context(), m, s, audit)
			if err != nil {
				return err
			}
			if err := a.recordTest(a.context(), resp); err != nil {
				return err
			}
			if err := a.print(resp); err != nil {
				return err
			}
			if !resp.Report.Compatible {
				return errors.NewSchemaGateError(errors.PolicyViolation,
					fmt.Sprintf("subject %s fails %s: %d of %d pair(s) incompatible",
						s.Name, resp.Report.Level, len(resp.Report.Failed()), len(resp.Report.Pairs)), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&audit, "audit", false, "Check every consecutive version pair")
	return cmd
}

// testSubject runs the chain check for s at its effective level.
func (a *app) testSubject(ctx context.Context, m *registry.Manifest, s *registry.Subject, audit bool) (*SubjectTestResponse, error) {
	start := time.Now()
	versions, err := chain.LoadSubject(a.root, s)
	if err != nil {
		return nil, err
	}

	level := s.LevelOr(m.Level())
	opts := chain.Options{Parallelism: a.cfg.Chain.Parallelism, Logger: a.logger}

	var report *chain.Report
	if audit {
		report, err = chain.CheckAll(ctx, versions, level, opts)
	} else {
		report, err = chain.Check(ctx, versions, level, opts)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Info("Subject checked",
		"subject", s.Name,
		"level", level,
		"pairs", len(report.Pairs),
		"compatible", report.Compatible,
		"duration", time.Since(start).Milliseconds(),
	)
	return &SubjectTestResponse{Subject: s.Name, Report: report, versions: versions}, nil
}

// recordTest stores the tested documents and one verdict per pair. It is a
// no-op when storage is disabled.
func (a *app) recordTest(ctx context.Context, resp *SubjectTestResponse) error {
	db, err := a.openStore()
	if err != nil || db == nil {
		return err
	}
	defer db.Close()

	for _, v := range resp.versions {
		if v.Doc == nil {
			continue
		}
		fp, err := v.Doc.Fingerprint()
		if err != nil {
			return err
		}
		if err := db.PutSchema(ctx, storage.SchemaRecord{
			Fingerprint: fp,
			Subject:     resp.Subject,
			Version:     v.Label,
			Document:    v.Doc.JSON,
		}); err != nil {
			return err
		}
	}
	for _, p := range resp.Report.Pairs {
		rec, err := db.RecordCheck(ctx, storage.NewCheckRecord(resp.Subject, p.From, p.To, resp.Report.Level, p.Analysis))
		if err != nil {
			return err
		}
		resp.Recorded = append(resp.Recorded, rec.ID)
	}
	return nil
}

// openStore opens the history database, or returns nil when storage is disabled.
func (a *app) openStore() (*storage.DB, error) {
	if !a.cfg.Storage.Enabled {
		return nil, nil
	}
	dir := paths.ResolveStorageDir(a.root, a.cfg.Storage.Path)
	return storage.Open(dir, a.logger, storage.WithCompression(a.cfg.Storage.Compress))
}

// ManifestResponse reports a manifest change
type ManifestResponse struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SubjectListResponse is the output of `schemagate subjects list`
type SubjectListResponse struct {
	Name         string                       `json:"name"`
	DefaultLevel evolution.CompatibilityLevel `json:"defaultLevel"`
	Subjects     []SubjectSummary             `json:"subjects"`
}

// SubjectSummary describes one subject in a listing
type SubjectSummary struct {
	Name        string                       `json:"name"`
	UID         string                       `json:"uid"`
	Level       evolution.CompatibilityLevel `json:"level"`
	Description string                       `json:"description,omitempty"`
	Versions    int                          `json:"versions"`
	Latest      string                       `json:"latest,omitempty"`
}

// SubjectTestResponse is the output of `schemagate subjects test`
type SubjectTestResponse struct {
	Subject  string        `json:"subject"`
	Report   *chain.Report `json:"report"`
	Recorded []string      `json:"recorded,omitempty"`

	versions []chain.Version
}
