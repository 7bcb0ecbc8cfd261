// inspect.go implements the "archmerge inspect" command.
//
// The inspect command loads one workspace document and prints its elements
// and relationships, which is the quickest way to check what an import
// produced.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/archmerge/internal/model"
	"github.com/shinji-kodama/archmerge/internal/workspace"
)

// NewInspectCommand creates the "inspect" cobra command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <workspace>",
		Short: "Show the elements and relationships of a workspace",
		Long: `Load a workspace document and list its elements and relationships.

Examples:
  archmerge inspect landscape.yaml
  archmerge inspect landscape.yaml --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			store := workspace.NewStore()
			ok, err := store.Exists(cmd.Context(), args[0])
			if err != nil {
				return model.WrapCLIError(model.ExitGeneralError, "failed to check workspace", err)
			}
			if !ok {
				return model.NewCLIError(model.ExitWorkspaceNotFound, fmt.Sprintf("workspace %q not found", args[0]))
			}

			doc, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return model.WrapCLIError(model.ExitParseError, "failed to load workspace", err)
			}

			if IsJSONOutput() {
				printInspectJSON(cmd.OutOrStdout(), doc)
			} else {
				printInspectText(cmd.OutOrStdout(), doc)
			}
			return nil
		},
	}
	return cmd
}

// inspectElementJSON is the JSON output structure for one element.
type inspectElementJSON struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Technology  string   `json:"technology,omitempty"`
	Tags        []string `json:"tags"`
}

// inspectRelationshipJSON is the JSON output structure for one relationship.
type inspectRelationshipJSON struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Description string `json:"description,omitempty"`
	Technology  string `json:"technology,omitempty"`
}

func printInspectJSON(w io.Writer, doc *model.Document) {
	type resultJSON struct {
		Name          string                    `json:"name"`
		Location      string                    `json:"location"`
		Elements      []inspectElementJSON      `json:"elements"`
		Relationships []inspectRelationshipJSON `json:"relationships"`
	}

	elements := doc.Model.Elements()
	result := resultJSON{
		Name:          doc.Name,
		Location:      doc.Location,
		Elements:      make([]inspectElementJSON, 0, len(elements)),
		Relationships: make([]inspectRelationshipJSON, 0, len(doc.Model.Relationships())),
	}

	for _, e := range elements {
		b := e.Base()
		tags := make([]string, 0, len(b.Tags))
		tags = append(tags, b.Tags...)
		result.Elements = append(result.Elements, inspectElementJSON{
			ID:          b.ID,
			Kind:        e.Kind().String(),
			Name:        b.Name,
			Path:        ElementPath(e),
			Description: b.Description,
			Technology:  b.Technology,
			Tags:        tags,
		})
	}
	for _, r := range doc.Model.Relationships() {
		result.Relationships = append(result.Relationships, inspectRelationshipJSON{
			ID:          r.ID,
			Source:      ElementPath(r.Source),
			Destination: ElementPath(r.Destination),
			Description: r.Description,
			Technology:  r.Technology,
		})
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Fprintln(w, string(data))
}

// printInspectText outputs the document as two aligned tables.
//
//	KIND             PATH                       TECHNOLOGY  TAGS
//	softwareSystem   Orders                     -           Internal
//	container        Orders/[Shop] API          Go          -
func printInspectText(w io.Writer, doc *model.Document) {
	title := doc.Name
	if title == "" {
		title = doc.Location
	}
	fmt.Fprintf(w, "Workspace: %s\n\n", title)

	elements := doc.Model.Elements()
	if len(elements) == 0 {
		fmt.Fprintln(w, "No elements.")
		return
	}

	fmt.Fprintf(w, "%-16s %-40s %-16s %s\n", "KIND", "PATH", "TECHNOLOGY", "TAGS")
	for _, e := range elements {
		b := e.Base()
		fmt.Fprintf(w, "%-16s %-40s %-16s %s\n",
			e.Kind().String(),
			ElementPath(e),
			orDash(b.Technology),
			FormatTags(b.Tags),
		)
	}

	relationships := doc.Model.Relationships()
	if len(relationships) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-30s %-30s %-24s %s\n", "SOURCE", "DESTINATION", "DESCRIPTION", "TECHNOLOGY")
	for _, r := range relationships {
		fmt.Fprintf(w, "%-30s %-30s %-24s %s\n",
			ElementPath(r.Source),
			ElementPath(r.Destination),
			orDash(r.Description),
			orDash(r.Technology),
		)
	}
}

// ElementPath names an element by its ancestry, e.g. "Orders/API/Handler".
// People and software systems are their own path.
func ElementPath(e model.Element) string {
	switch v := e.(type) {
	case *model.Container:
		return v.SoftwareSystem().Name + "/" + v.Name
	case *model.Component:
		c := v.Container()
		return c.SoftwareSystem().Name + "/" + c.Name + "/" + v.Name
	default:
		return e.Base().Name
	}
}

// FormatTags joins tags with commas. Returns "-" when there are none.
func FormatTags(tags model.Tags) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
