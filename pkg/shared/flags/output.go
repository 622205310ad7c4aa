package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
)

func AddJSON(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the result as JSON.")
}

func HandleJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func AddFolder(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("folder", "f", "", usage)
}

// HandleScope reads --folder as a listing scope: empty or "all", "root", or
// a folder path.
func HandleScope(cmd *cobra.Command) note.Scope {
	folder, _ := cmd.Flags().GetString("folder")
	return note.ParseScope(folder)
}

func AddSince(cmd *cobra.Command) {
	cmd.Flags().String("since", "", "Only notes updated at or after this time (e.g. 2024-03-01, \"Mar 1 2024 10:00\").")
}

// HandleSince parses --since with dateparse. An unset flag yields the zero
// time.
func HandleSince(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("since")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	since, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse --since %q", note.ErrInvalid, raw)
	}
	return since.UTC(), nil
}
