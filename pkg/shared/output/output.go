// Package output holds the terminal helpers shared by the commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultWidth = 80

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of w, or 80 when w is not a terminal.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// Renderer returns a lipgloss renderer for w. Output that is not a terminal
// gets no colors.
func Renderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// GlamourStyle picks the markdown style for w.
func GlamourStyle(w io.Writer) string {
	if !IsTerminal(w) {
		return "notty"
	}
	if termenv.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Confirm asks a yes/no question. It is replaced in tests.
var Confirm = func(prompt string) (bool, error) {
	return confirmation.New(prompt, confirmation.No).RunPrompt()
}

// Styles are the shared lipgloss styles bound to one renderer.
type Styles struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Hub      lipgloss.Style
	Box      lipgloss.Style
	Selected lipgloss.Style
}

func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#8b5cf6")),
		Label:    r.NewStyle().Foreground(lipgloss.Color("#6b7280")).Width(20),
		Value:    r.NewStyle().Bold(true),
		Muted:    r.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		Success:  r.NewStyle().Foreground(lipgloss.Color("#10b981")),
		Hub:      r.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true),
		Box:      r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3b82f6")).Padding(0, 1),
		Selected: r.NewStyle().Foreground(lipgloss.Color("#ec4899")),
	}
}
