// Package registry manages schemagate.toml, the manifest that declares which
// schema subjects a project publishes, the compatibility level each one is
// held to, and where every version's document lives.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"schemagate/internal/errors"
	"schemagate/internal/evolution"
	"schemagate/internal/paths"
	"schemagate/internal/schema"
)

// Manifest represents the subject manifest stored in schemagate.toml
type Manifest struct {
	// Name identifies the project publishing the subjects
	Name string `toml:"name" validate:"required"`

	// DefaultLevel applies to subjects without their own level
	DefaultLevel string `toml:"default_level" validate:"required,compatlevel"`

	CreatedAt time.Time `toml:"created_at"`
	UpdatedAt time.Time `toml:"updated_at"`

	Subjects []Subject `toml:"subjects" validate:"dive"`
}

// Subject is one versioned schema stream
type Subject struct {
	// UID is immutable; Name may be renamed
	UID string `toml:"uid" validate:"required,uuid"`

	Name        string    `toml:"name" validate:"required,excludesall=/\\"`
	Level       string    `toml:"level,omitempty" validate:"omitempty,compatlevel"`
	Description string    `toml:"description,omitempty"`
	Versions    []Version `toml:"versions" validate:"dive"`
}

// Version points at one schema document
type Version struct {
	Version string    `toml:"version" validate:"required,semverlabel"`
	Path    string    `toml:"path" validate:"required"`
	AddedAt time.Time `toml:"added_at"`
}

// ManifestPath returns <root>/schemagate.toml.
func ManifestPath(root string) string {
	return filepath.Join(root, paths.ManifestFileName)
}

// NewManifest creates an empty manifest.
func NewManifest(name string, level evolution.CompatibilityLevel) *Manifest {
	now := time.Now().UTC()
	return &Manifest{
		Name:         name,
		DefaultLevel: string(level),
		CreatedAt:    now,
		UpdatedAt:    now,
		Subjects:     []Subject{},
	}
}

// LoadManifest reads and validates a manifest.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSchemaGateError(errors.ManifestInvalid, fmt.Sprintf("manifest %s not found", path), err,
				errors.FixAction{
					Type:        errors.RunCommand,
					Command:     "schemagate subjects init <name>",
					Safe:        true,
					Description: "Create a manifest",
				})
		}
		return nil, errors.NewSchemaGateError(errors.ManifestInvalid, fmt.Sprintf("failed to parse %s", path), err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the manifest to path, creating parent directories.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return nil
}

// AddSubject declares a new subject. An empty level means the manifest default.
func (m *Manifest) AddSubject(name, level, description string) (*Subject, error) {
	if _, err := m.Subject(name); err == nil {
		return nil, errors.NewSchemaGateError(errors.ManifestInvalid, fmt.Sprintf("subject %q already exists", name), nil)
	}
	if level != "" {
		parsed, err := evolution.ParseCompatibilityLevel(level)
		if err != nil {
			return nil, err
		}
		level = string(parsed)
	}

	m.Subjects = append(m.Subjects, Subject{
		UID:         uuid.New().String(),
		Name:        name,
		Level:       level,
		Description: description,
		Versions:    []Version{},
	})
	m.UpdatedAt = time.Now().UTC()
	return &m.Subjects[len(m.Subjects)-1], nil
}

// AddVersion registers a schema document as a new version of subject.
// Labels are normalised to the "v" prefixed semver form.
func (m *Manifest) AddVersion(subject, label, path string) (*Version, error) {
	s, err := m.Subject(subject)
	if err != nil {
		return nil, err
	}

	label = NormalizeVersion(label)
	if !semver.IsValid(label) {
		return nil, errors.NewSchemaGateError(errors.ManifestInvalid,
			fmt.Sprintf("version %q of subject %q is not a semantic version", label, subject), nil)
	}
	if _, err := s.Version(label); err == nil {
		return nil, errors.NewSchemaGateError(errors.ManifestInvalid,
			fmt.Sprintf("subject %q already has version %s", subject, label), nil)
	}

	s.Versions = append(s.Versions, Version{
		Version: label,
		Path:    filepath.ToSlash(path),
		AddedAt: time.Now().UTC(),
	})
	m.UpdatedAt = time.Now().UTC()
	return &s.Versions[len(s.Versions)-1], nil
}

// Subject returns the subject with the given name.
func (m *Manifest) Subject(name string) (*Subject, error) {
	for i := range m.Subjects {
		if m.Subjects[i].Name == name {
			return &m.Subjects[i], nil
		}
	}
	return nil, errors.NewSchemaGateError(errors.SubjectNotFound, fmt.Sprintf("subject %q not found", name), nil)
}

// SubjectByUID returns the subject with the given UID, or nil.
func (m *Manifest) SubjectByUID(uid string) *Subject {
	for i := range m.Subjects {
		if m.Subjects[i].UID == uid {
			return &m.Subjects[i]
		}
	}
	return nil
}

// SubjectsForPath returns the subjects with a version stored at path, which
// is resolved against root.
func (m *Manifest) SubjectsForPath(root, path string) []*Subject {
	target := filepath.Clean(path)
	var out []*Subject
	for i := range m.Subjects {
		for _, v := range m.Subjects[i].Versions {
			if filepath.Clean(paths.JoinRoot(root, v.Path)) == target {
				out = append(out, &m.Subjects[i])
				break
			}
		}
	}
	return out
}

// Level returns the manifest default level, falling back to BACKWARD.
func (m *Manifest) Level() evolution.CompatibilityLevel {
	l, err := evolution.ParseCompatibilityLevel(m.DefaultLevel)
	if err != nil {
		return evolution.LevelBackward
	}
	return l
}

// LevelOr returns the subject's own level, or def when it has none.
func (s *Subject) LevelOr(def evolution.CompatibilityLevel) evolution.CompatibilityLevel {
	if s.Level == "" {
		return def
	}
	l, err := evolution.ParseCompatibilityLevel(s.Level)
	if err != nil {
		return def
	}
	return l
}

// Version returns the version with the given label.
func (s *Subject) Version(label string) (*Version, error) {
	label = NormalizeVersion(label)
	for i := range s.Versions {
		if s.Versions[i].Version == label {
			return &s.Versions[i], nil
		}
	}
	return nil, errors.NewSchemaGateError(errors.VersionNotFound,
		fmt.Sprintf("subject %q has no version %s", s.Name, label), nil)
}

// Ordered returns the versions sorted by semantic version, oldest first.
func (s *Subject) Ordered() []Version {
	out := slices.Clone(s.Versions)
	slices.SortStableFunc(out, func(a, b Version) int {
		return semver.Compare(a.Version, b.Version)
	})
	return out
}

// Latest returns the newest version, or nil when there are none.
func (s *Subject) Latest() *Version {
	ordered := s.Ordered()
	if len(ordered) == 0 {
		return nil
	}
	return &ordered[len(ordered)-1]
}

// LoadVersion parses the schema document of v. Relative paths resolve
// against root.
func LoadVersion(root string, v Version) (*schema.Document, error) {
	return schema.ParseFile(paths.JoinRoot(root, v.Path))
}

// NormalizeVersion adds the "v" prefix semver requires.
func NormalizeVersion(label string) string {
	label = strings.TrimSpace(label)
	if label != "" && !strings.HasPrefix(label, "v") {
		return "v" + label
	}
	return label
}

// SortVersions sorts labels by semantic version in place. Invalid labels
// sort first.
func SortVersions(labels []string) {
	slices.SortStableFunc(labels, func(a, b string) int {
		return semver.Compare(NormalizeVersion(a), NormalizeVersion(b))
	})
}
