package flags

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// ReadClipboard is replaced in tests.
var ReadClipboard = clipboard.ReadAll

func AddPaste(cmd *cobra.Command) {
	cmd.Flags().
		Bool("paste", false, "Use the clipboard contents as the note content.")
}

// HandlePaste returns the clipboard contents when --paste is set, and ok
// reports whether it was.
func HandlePaste(cmd *cobra.Command) (content string, ok bool, err error) {
	paste, err := cmd.Flags().GetBool("paste")
	if err != nil || !paste {
		return "", false, err
	}
	content, err = ReadClipboard()
	if err != nil {
		return "", true, fmt.Errorf("failed to read clipboard: %w", err)
	}
	return content, true, nil
}
