package registry

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"

	"schemagate/internal/errors"
	"schemagate/internal/evolution"
)

// manifestValidate is the validator instance for manifest structs, with the
// compatlevel and semverlabel tags registered.
var manifestValidate *validator.Validate

func init() {
	manifestValidate = validator.New()
	_ = manifestValidate.RegisterValidation("compatlevel", validateLevel)
	_ = manifestValidate.RegisterValidation("semverlabel", validateSemver)
}

func validateLevel(fl validator.FieldLevel) bool {
	_, err := evolution.ParseCompatibilityLevel(fl.Field().String())
	return err == nil
}

func validateSemver(fl validator.FieldLevel) bool {
	return semver.IsValid(fl.Field().String())
}

// Validate checks field tags and cross-entry consistency: unique subject
// names and UIDs, and unique version labels per subject. The returned error
// is a MANIFEST_INVALID SchemaGateError listing every problem.
func (m *Manifest) Validate() error {
	var problems []string

	if err := manifestValidate.Struct(m); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return errors.NewSchemaGateError(errors.ManifestInvalid, "manifest validation failed", err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	names := make(map[string]bool, len(m.Subjects))
	uids := make(map[string]bool, len(m.Subjects))
	for _, s := range m.Subjects {
		if names[s.Name] {
			problems = append(problems, fmt.Sprintf("subject %q is declared more than once", s.Name))
		}
		names[s.Name] = true
		if s.UID != "" && uids[s.UID] {
			problems = append(problems, fmt.Sprintf("subject %q reuses uid %s", s.Name, s.UID))
		}
		uids[s.UID] = true

		labels := make(map[string]bool, len(s.Versions))
		for _, v := range s.Versions {
			if labels[v.Version] {
				problems = append(problems, fmt.Sprintf("subject %q lists version %s more than once", s.Name, v.Version))
			}
			labels[v.Version] = true
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.NewSchemaGateError(errors.ManifestInvalid,
		fmt.Sprintf("manifest is invalid: %s", strings.Join(problems, "; ")), nil).
		WithDetails(problems)
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Manifest.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "compatlevel":
		return fmt.Sprintf("%s: unknown compatibility level %q", field, fe.Value())
	case "semverlabel":
		return fmt.Sprintf("%s: %q is not a semantic version", field, fe.Value())
	case "uuid":
		return fmt.Sprintf("%s: %q is not a UUID", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
