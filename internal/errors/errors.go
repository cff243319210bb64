package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SchemaParseFailed indicates a schema document is not valid JSON or YAML
	SchemaParseFailed ErrorCode = "SCHEMA_PARSE_FAILED"
	// SchemaNotFound indicates a schema file or stored document does not exist
	SchemaNotFound ErrorCode = "SCHEMA_NOT_FOUND"
	// SubjectNotFound indicates a subject is not declared in the manifest
	SubjectNotFound ErrorCode = "SUBJECT_NOT_FOUND"
	// VersionNotFound indicates a subject has no such version
	VersionNotFound ErrorCode = "VERSION_NOT_FOUND"
	// InvalidLevel indicates an unknown compatibility level name
	InvalidLevel ErrorCode = "INVALID_LEVEL"
	// PolicyViolation indicates a candidate schema fails its compatibility level
	PolicyViolation ErrorCode = "POLICY_VIOLATION"
	// StorageError indicates the history database failed
	StorageError ErrorCode = "STORAGE_ERROR"
	// ManifestInvalid indicates schemagate.toml is malformed or inconsistent
	ManifestInvalid ErrorCode = "MANIFEST_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file
	EditFile FixActionType = "edit-file"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// SchemaGateError represents an error with code, message, and suggestions
type SchemaGateError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewSchemaGateError creates a new SchemaGateError. When no fixes are given the
// defaults registered for the code are attached.
func NewSchemaGateError(code ErrorCode, message string, cause error, fixes ...FixAction) *SchemaGateError {
	if len(fixes) == 0 {
		fixes = GetSuggestedFixes(code)
	}
	return &SchemaGateError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: fixes,
	}
}

// Error implements the error interface
func (e *SchemaGateError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SchemaGateError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SchemaGateError) WithDetails(details interface{}) *SchemaGateError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first SchemaGateError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var sge *SchemaGateError
	if errors.As(err, &sge) {
		return sge.Code
	}
	return InternalError
}

// ExitCodeFor maps an error to a process exit code.
// Policy violations exit 1 so CI can gate on them; usage problems exit 2.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case PolicyViolation:
		return 1
	case SchemaParseFailed, SchemaNotFound, SubjectNotFound, VersionNotFound, InvalidLevel, ManifestInvalid:
		return 2
	default:
		return 3
	}
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SchemaParseFailed: {
		{
			Type:        EditFile,
			Description: "Fix the JSON or YAML syntax of the schema document",
		},
	},
	SubjectNotFound: {
		{
			Type:        RunCommand,
			Command:     "schemagate subjects list",
			Safe:        true,
			Description: "List declared subjects",
		},
	},
	VersionNotFound: {
		{
			Type:        RunCommand,
			Command:     "schemagate subjects add-version <subject> <version> <path>",
			Description: "Register the missing version",
		},
	},
	InvalidLevel: {
		{
			Type:        OpenDocs,
			Description: "Use one of BACKWARD, FORWARD, FULL, NONE or a _TRANSITIVE variant",
		},
	},
	ManifestInvalid: {
		{
			Type:        EditFile,
			Path:        "schemagate.toml",
			Description: "Correct the manifest entries reported above",
		},
	},
	StorageError: {
		{
			Type:        RunCommand,
			Command:     "rm -f .schemagate/history.db",
			Description: "Reset the history database",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
