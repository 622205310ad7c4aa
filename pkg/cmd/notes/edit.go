package notes

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/state"
)

// launchEditor opens path in editor and waits for it to exit. Tests replace
// it.
var launchEditor = func(editor, path string, stdin io.Reader, stdout, stderr io.Writer) error {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return fmt.Errorf("no editor configured")
	}
	cmd := exec.Command(fields[0], append(fields[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting %s: %w", fields[0], err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("error waiting for %s to close: %w", fields[0], err)
	}
	return nil
}

func newCmdEdit(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "edit [id|title]",
		Aliases: []string{"e"},
		Short:   "Edit a note.",
		Long: heredoc.Doc(`
			Updates the given fields. Without --title, --content or --folder the
			note content is opened in your editor (config "editor", then $EDITOR).
			Links added or removed by the edit update the backlinks of the notes
			they name.
		`),
		Example: heredoc.Doc(`
			weave notes edit "Graph theory"
			weave notes edit 3f2a... --title "Graph Theory" --folder research/math
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, s, args[0])
		},
	}

	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("content", "", "New content")
	cmd.Flags().String("folder", "", "New folder; empty string moves the note to the root")
	return cmd
}

func runEdit(cmd *cobra.Command, s *state.State, ref string) error {
	ctx := cmd.Context()
	owner := s.Config.Owner

	n, err := s.Notes.Resolve(ctx, owner, ref)
	if err != nil {
		return err
	}

	var u note.Update
	for name, dst := range map[string]**string{"title": &u.Title, "content": &u.Content, "folder": &u.Folder} {
		if f := cmd.Flags().Lookup(name); f.Changed {
			v := f.Value.String()
			*dst = &v
		}
	}

	if u.IsZero() {
		content, err := editInEditor(cmd, s.Config.EditorCommand(), n)
		if err != nil {
			return err
		}
		if content == n.Content {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
			return nil
		}
		u.Content = &content
	}

	updated, err := s.Notes.Update(ctx, owner, n.ID, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %q (%s)\n", updated.Title, updated.ID)
	return nil
}

func editInEditor(cmd *cobra.Command, editor string, n note.Note) (string, error) {
	dir, err := os.MkdirTemp("", "weave-edit-")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, sanitize(n.Title)+".md")
	if err := os.WriteFile(path, []byte(n.Content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := launchEditor(editor, path, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited note: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func sanitize(title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
	if clean == "" {
		return "note"
	}
	return clean
}
