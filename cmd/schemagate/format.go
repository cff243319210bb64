package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"schemagate/internal/evolution"
	"schemagate/internal/validator"
	"schemagate/internal/version"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp any) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp any) (string, error) {
	switch v := resp.(type) {
	case *AnalyzeResponse:
		return formatAnalyzeHuman(v), nil
	case *CheckResponse:
		return formatCheckHuman(v), nil
	case *ValidateResponse:
		return formatValidateHuman(v), nil
	case *ManifestResponse:
		return v.Message, nil
	case *SubjectListResponse:
		return formatSubjectsHuman(v), nil
	case *SubjectTestResponse:
		return formatSubjectTestHuman(v), nil
	case *HistoryResponse:
		return formatHistoryHuman(v), nil
	case *version.BuildInfo:
		return version.Full(), nil
	default:
		// unknown types fall back to JSON
		return formatJSON(resp)
	}
}

// header writes title underlined with ━ to its display width.
func header(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("━", utf8.RuneCountInString(title)) + "\n")
}

func verdict(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func writeChanges(sb *strings.Builder, changes []evolution.Change) {
	if len(changes) == 0 {
		sb.WriteString("No structural changes detected.\n")
		return
	}

	var breaking, safe []evolution.Change
	for _, c := range changes {
		if c.Breaking {
			breaking = append(breaking, c)
		} else {
			safe = append(safe, c)
		}
	}

	if len(breaking) > 0 {
		sb.WriteString(fmt.Sprintf("Breaking Changes (%d):\n\n", len(breaking)))
		for _, c := range breaking {
			sb.WriteString(fmt.Sprintf("  ✗ [%s] %s (%s, breaks %s)\n", c.Kind, c.Field, c.Impact, c.Direction))
			sb.WriteString(fmt.Sprintf("    %s\n", c.Description))
			if c.OldValue != nil || c.NewValue != nil {
				sb.WriteString(fmt.Sprintf("    Before: %s\n", display(c.OldValue)))
				sb.WriteString(fmt.Sprintf("    After:  %s\n", display(c.NewValue)))
			}
			sb.WriteString("\n")
		}
	}
	if len(safe) > 0 {
		sb.WriteString(fmt.Sprintf("Non-breaking Changes (%d):\n\n", len(safe)))
		for _, c := range safe {
			sb.WriteString(fmt.Sprintf("  + [%s] %s\n", c.Kind, c.Field))
			sb.WriteString(fmt.Sprintf("    %s\n", c.Description))
		}
		sb.WriteString("\n")
	}
}

func display(v any) string {
	if v == nil {
		return "(none)"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func writeMigration(sb *strings.Builder, steps []evolution.MigrationStep) {
	if len(steps) == 0 {
		return
	}
	sb.WriteString("Migration Path:\n")
	for i, s := range steps {
		mode := "manual"
		if s.Automated {
			mode = "automated"
		}
		sb.WriteString(fmt.Sprintf("  %d. %s [%s] (%s, %s)\n", i+1, s.Action, s.Field, s.Complexity, mode))
		sb.WriteString(fmt.Sprintf("     %s\n", s.Description))
		if s.Code != "" {
			sb.WriteString(fmt.Sprintf("     $ %s\n", s.Code))
		}
	}
	sb.WriteString("\n")
}

func writeRisk(sb *strings.Builder, r evolution.RiskAssessment) {
	sb.WriteString(fmt.Sprintf("Risk: %s (%d breaking)\n", r.OverallRisk, r.BreakingChanges))
	if len(r.RecommendedActions) > 0 {
		sb.WriteString("  Recommended:\n")
		for _, a := range r.RecommendedActions {
			sb.WriteString(fmt.Sprintf("    - %s\n", a))
		}
	}
	if len(r.RollbackPlan) > 0 {
		sb.WriteString("  Rollback plan:\n")
		for _, p := range r.RollbackPlan {
			sb.WriteString(fmt.Sprintf("    - %s\n", p))
		}
	}
}

func formatAnalyzeHuman(resp *AnalyzeResponse) string {
	var sb strings.Builder
	a := resp.Analysis

	header(&sb, "Schema Evolution Analysis")
	sb.WriteString(fmt.Sprintf("\nComparing: %s → %s\n\n", resp.Old, resp.New))

	writeChanges(&sb, a.Changes)
	writeMigration(&sb, a.MigrationPath)

	header(&sb, "Summary")
	sb.WriteString(fmt.Sprintf("  Total changes: %d\n", resp.Summary.TotalChanges))
	sb.WriteString(fmt.Sprintf("  Breaking: %d\n", resp.Summary.BreakingChanges))
	sb.WriteString(fmt.Sprintf("  High impact: %d\n", resp.Summary.HighImpact))
	sb.WriteString(fmt.Sprintf("  Backward compatible: %s\n", verdict(a.IsBackwardCompatible)))
	sb.WriteString(fmt.Sprintf("  Forward compatible: %s\n\n", verdict(a.IsForwardCompatible)))
	writeRisk(&sb, a.RiskAssessment)
	return strings.TrimRight(sb.String(), "\n")
}

func formatCheckHuman(resp *CheckResponse) string {
	var sb strings.Builder
	c := resp.Check

	header(&sb, "Compatibility Check")
	sb.WriteString(fmt.Sprintf("\nComparing: %s → %s\n", resp.Old, resp.New))
	sb.WriteString(fmt.Sprintf("Level: %s\n\n", c.Level))
	sb.WriteString(fmt.Sprintf("%s %s\n", verdict(c.Compatible), c.Message))
	if c.Action != "" {
		sb.WriteString(fmt.Sprintf("  Action: %s\n", c.Action))
	}
	if len(c.Violations) > 0 {
		sb.WriteString("\nViolations:\n")
		for _, v := range c.Violations {
			sb.WriteString(fmt.Sprintf("  ✗ [%s] %s\n", v.Kind, v.Description))
		}
	}
	sb.WriteString(fmt.Sprintf("\nRisk: %s", resp.Risk))
	return sb.String()
}

func writeIssues(sb *strings.Builder, title, mark string, issues []validator.ValidationIssue) {
	if len(issues) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s (%d):\n", title, len(issues)))
	for _, i := range issues {
		sb.WriteString(fmt.Sprintf("  %s %s: %s\n", mark, i.Path, i.Message))
		if i.Suggestion != "" {
			sb.WriteString(fmt.Sprintf("    → %s\n", i.Suggestion))
		}
	}
	sb.WriteString("\n")
}

func formatValidateHuman(resp *ValidateResponse) string {
	var sb strings.Builder
	r := resp.Result

	header(&sb, "Schema Evolution Validation")
	sb.WriteString(fmt.Sprintf("\nComparing: %s → %s\n", resp.Base, resp.Candidate))
	sb.WriteString(fmt.Sprintf("Mode: %s\n\n", r.Mode))

	writeIssues(&sb, "Errors", "✗", r.Errors)
	writeIssues(&sb, "Warnings", "⚠", r.Warnings)
	writeMigration(&sb, r.MigrationPath)

	header(&sb, "Summary")
	sb.WriteString(fmt.Sprintf("  Valid: %s\n", verdict(r.Valid)))
	sb.WriteString(fmt.Sprintf("  Compatible: %s\n", verdict(r.Compatible)))
	sb.WriteString(fmt.Sprintf("  Migration complexity: %s\n", r.MigrationComplexity))
	if r.Effort != nil {
		sb.WriteString(fmt.Sprintf("  Estimated effort: %.1fh (confidence %.0f%%)\n", r.Effort.Hours, r.Effort.Confidence*100))
		for _, b := range r.Effort.Blockers {
			sb.WriteString(fmt.Sprintf("    ! %s\n", b))
		}
	}
	if r.Analysis != nil {
		sb.WriteString(fmt.Sprintf("  Risk: %s", r.Analysis.RiskAssessment.OverallRisk))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSubjectsHuman(resp *SubjectListResponse) string {
	var sb strings.Builder

	header(&sb, fmt.Sprintf("Subjects of %s", resp.Name))
	sb.WriteString(fmt.Sprintf("Default level: %s\n\n", resp.DefaultLevel))
	if len(resp.Subjects) == 0 {
		sb.WriteString("No subjects declared.\n")
		sb.WriteString("  $ schemagate subjects add <subject>")
		return sb.String()
	}
	for _, s := range resp.Subjects {
		latest := s.Latest
		if latest == "" {
			latest = "-"
		}
		sb.WriteString(fmt.Sprintf("  %-24s %-20s %3d version(s)  latest %s\n", s.Name, s.Level, s.Versions, latest))
		if s.Description != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", s.Description))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatSubjectTestHuman(resp *SubjectTestResponse) string {
	var sb strings.Builder
	r := resp.Report

	header(&sb, fmt.Sprintf("Subject %s", resp.Subject))
	sb.WriteString(fmt.Sprintf("Level: %s\n", r.Level))
	if r.Latest != "" {
		sb.WriteString(fmt.Sprintf("Latest: %s\n", r.Latest))
	}
	sb.WriteString("\n")

	if len(r.Pairs) == 0 {
		sb.WriteString("Fewer than two versions; nothing to compare.\n")
	}
	for _, p := range r.Pairs {
		sb.WriteString(fmt.Sprintf("  %s %s → %s", verdict(p.Compatible), p.From, p.To))
		if p.Analysis != nil {
			sb.WriteString(fmt.Sprintf("  (%d change(s), risk %s)", len(p.Analysis.Changes), p.Analysis.RiskAssessment.OverallRisk))
		}
		sb.WriteString("\n")
		for _, v := range p.Violations {
			sb.WriteString(fmt.Sprintf("      ✗ [%s] %s\n", v.Kind, v.Description))
		}
	}

	sb.WriteString("\n")
	if r.Compatible {
		sb.WriteString(fmt.Sprintf("✓ %s satisfies %s", resp.Subject, r.Level))
	} else {
		sb.WriteString(fmt.Sprintf("✗ %s violates %s in %d pair(s)", resp.Subject, r.Level, len(r.Failed())))
	}
	return sb.String()
}

func formatHistoryHuman(resp *HistoryResponse) string {
	var sb strings.Builder

	title := "Verdict History"
	if resp.Subject != "" {
		title += ": " + resp.Subject
	}
	header(&sb, title)
	sb.WriteString("\n")

	if len(resp.Checks) == 0 {
		sb.WriteString("No verdicts recorded.\n")
		sb.WriteString("  $ schemagate subjects test <subject>")
		return sb.String()
	}
	for _, c := range resp.Checks {
		sb.WriteString(fmt.Sprintf("  %s %s  %s %s → %s  %s  %d breaking, risk %s\n",
			verdict(c.Compatible),
			c.CreatedAt.Format("2006-01-02 15:04:05"),
			c.Subject, c.FromVersion, c.ToVersion,
			c.Level, c.Breaking, c.Risk))
	}
	return strings.TrimRight(sb.String(), "\n")
}
