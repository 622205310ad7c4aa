package graph

import "strings"

// Opacity suffixes appended to a base hex color.
const (
	mediumIntensity = "80"
	lowIntensity    = "40"
)

// Palette maps the first segment of a folder path to a base color.
type Palette struct {
	Folders map[string]string
	Default string
}

// DefaultPalette returns the stock folder colors.
func DefaultPalette() Palette {
	return Palette{
		Folders: map[string]string{
			"work":     "#3b82f6",
			"personal": "#10b981",
			"projects": "#8b5cf6",
			"research": "#f59e0b",
			"ideas":    "#ec4899",
			"notes":    "#6b7280",
		},
		Default: "#6b7280",
	}
}

// Base returns the folder's base color. Lookup is case-insensitive on the
// first path segment; root and unknown folders get the default.
func (p Palette) Base(folder string) string {
	if folder == "" {
		return p.Default
	}
	key, _, _ := strings.Cut(strings.ToLower(folder), "/")
	if color, ok := p.Folders[key]; ok {
		return color
	}
	return p.Default
}

// Color returns the base color with an opacity suffix: none for hubs, medium
// for connected notes, low otherwise.
func (p Palette) Color(folder string, connections int, opts Options) string {
	base := p.Base(folder)
	switch {
	case connections >= opts.HubThreshold:
		return base
	case connections >= opts.ConnectedThreshold:
		return base + mediumIntensity
	default:
		return base + lowIntensity
	}
}
