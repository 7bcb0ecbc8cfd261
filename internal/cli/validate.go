// validate.go implements the "archmerge validate" command.
//
// validate runs the document checks an import applies to every source, so
// authors can find problems before an import silently skips their file.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/archmerge/internal/model"
	"github.com/shinji-kodama/archmerge/internal/workspace"
)

// NewValidateCommand creates the "validate" cobra command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workspace>...",
		Short: "Check workspace documents for problems",
		Long: `Check each workspace document for problems that would stop it from
being imported (blank or duplicate names, duplicate IDs, relationships to
unknown elements) and for names that may merge unexpectedly.

Exits with code 5 when any document has an error. Warnings alone succeed.

Examples:
  archmerge validate teams/orders.yaml teams/billing.json
  archmerge validate teams/*.yaml --json`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := validateDocuments(cmd, args)
			if err != nil {
				return err
			}
			printValidateReports(cmd.OutOrStdout(), reports)

			failed := 0
			for _, r := range reports {
				if !r.Valid {
					failed++
				}
			}
			if failed > 0 {
				return model.NewCLIError(model.ExitValidationFailed,
					fmt.Sprintf("%d of %d workspace(s) failed validation", failed, len(reports)))
			}
			return nil
		},
	}
	return cmd
}

// validateReport is the outcome for one document.
type validateReport struct {
	Location string                      `json:"location"`
	Valid    bool                        `json:"valid"`
	Issues   []workspace.ValidationError `json:"issues"`
}

func validateDocuments(cmd *cobra.Command, locations []string) ([]validateReport, error) {
	store := workspace.NewStore()
	reports := make([]validateReport, 0, len(locations))

	for _, location := range locations {
		report := validateReport{Location: location, Issues: []workspace.ValidationError{}}

		format, ok := workspace.FormatOf(location)
		if !ok {
			report.Issues = append(report.Issues, workspace.ValidationError{
				Field:    "location",
				Message:  "unrecognized extension: expected .json, .jsonc, .yaml or .yml",
				Severity: workspace.SeverityError,
			})
			reports = append(reports, report)
			continue
		}

		data, err := store.Read(cmd.Context(), location)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitWorkspaceNotFound, fmt.Sprintf("cannot read %s", location), err)
		}

		raw, err := workspace.Unmarshal(data, format)
		if err != nil {
			report.Issues = append(report.Issues, workspace.ValidationError{
				Field:    "document",
				Message:  err.Error(),
				Severity: workspace.SeverityError,
			})
		} else {
			report.Issues = append(report.Issues, workspace.Validate(raw)...)
		}
		report.Valid = len(workspace.Errors(report.Issues)) == 0
		reports = append(reports, report)
	}
	return reports, nil
}

func printValidateReports(w io.Writer, reports []validateReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{"workspaces": reports}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	for _, r := range reports {
		status := "ok"
		if !r.Valid {
			status = "invalid"
		}
		fmt.Fprintf(w, "%s: %s\n", r.Location, status)
		for _, issue := range r.Issues {
			fmt.Fprintf(w, "  %-7s %s: %s\n", issue.Severity, issue.Field, issue.Message)
		}
	}
}
