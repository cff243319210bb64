package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewSchemaGateError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	fixes := []FixAction{{Type: EditFile, Path: "order.json"}}

	err := NewSchemaGateError(SchemaParseFailed, "cannot parse order.json", cause, fixes...)

	if err.Code != SchemaParseFailed {
		t.Errorf("Code = %v, want %v", err.Code, SchemaParseFailed)
	}
	if err.Message != "cannot parse order.json" {
		t.Errorf("Message = %q, want %q", err.Message, "cannot parse order.json")
	}
	if len(err.SuggestedFixes) != 1 || err.SuggestedFixes[0].Path != "order.json" {
		t.Errorf("SuggestedFixes = %+v, want the explicit fix", err.SuggestedFixes)
	}
}

func TestNewSchemaGateError_DefaultFixes(t *testing.T) {
	err := NewSchemaGateError(SubjectNotFound, "subject \"order\" not declared", nil)
	if len(err.SuggestedFixes) == 0 {
		t.Fatal("expected default fixes for SUBJECT_NOT_FOUND")
	}
	if err.SuggestedFixes[0].Command != "schemagate subjects list" {
		t.Errorf("Command = %q", err.SuggestedFixes[0].Command)
	}

	noFixes := NewSchemaGateError(InternalError, "boom", nil)
	if noFixes.SuggestedFixes != nil {
		t.Errorf("InternalError should carry no fixes, got %+v", noFixes.SuggestedFixes)
	}
}

func TestSchemaGateError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      StorageError,
			message:   "cannot record check",
			cause:     errors.New("database is locked"),
			wantParts: []string{"STORAGE_ERROR", "cannot record check", "database is locked"},
		},
		{
			name:      "without cause",
			code:      VersionNotFound,
			message:   "version v9 not found",
			wantParts: []string{"VERSION_NOT_FOUND", "version v9 not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSchemaGateError(tt.code, tt.message, tt.cause).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestSchemaGateError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewSchemaGateError(InternalError, "something went wrong", cause)
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewSchemaGateError(ManifestInvalid, "bad manifest", nil).WithDetails(map[string]string{"field": "subjects[0].name"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["field"] != "subjects[0].name" {
		t.Errorf("Details = %#v", err.Details)
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"policy", NewSchemaGateError(PolicyViolation, "incompatible", nil), 1},
		{"wrapped usage", fmt.Errorf("check: %w", NewSchemaGateError(InvalidLevel, "bad level", nil)), 2},
		{"storage", NewSchemaGateError(StorageError, "locked", nil), 3},
		{"plain", errors.New("plain"), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCodeFor(tt.err); got != tt.want {
				t.Errorf("ExitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewSchemaGateError(SchemaNotFound, "missing", nil))
	if got := CodeOf(wrapped); got != SchemaNotFound {
		t.Errorf("CodeOf() = %v, want %v", got, SchemaNotFound)
	}
	if got := CodeOf(errors.New("x")); got != InternalError {
		t.Errorf("CodeOf() = %v, want %v", got, InternalError)
	}
}
