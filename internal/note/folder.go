package note

import (
	"fmt"
	"strings"
)

// RootFolder is the sentinel used for notes without a folder, both in scope
// queries and in the folder distribution statistic.
const RootFolder = "root"

// NormalizeFolder trims whitespace and redundant slashes from a folder path.
// The empty string denotes the root.
func NormalizeFolder(path string) string {
	path = strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

// InFolder reports whether folder equals prefix or sits beneath it. Matching
// happens on whole path segments, so "work" does not contain "workshop".
func InFolder(folder, prefix string) bool {
	if prefix == "" {
		return true
	}
	return folder == prefix || strings.HasPrefix(folder, prefix+"/")
}

// RewritePrefix replaces the leading from segment(s) of folder with to.
// Folders outside from are returned unchanged.
func RewritePrefix(folder, from, to string) string {
	if !InFolder(folder, from) || from == "" {
		return folder
	}
	rest := strings.TrimPrefix(folder, from)
	return NormalizeFolder(to + rest)
}

// RenameTarget computes the path a folder takes when its last segment is
// renamed to newName.
func RenameTarget(path, newName string) (string, error) {
	path = NormalizeFolder(path)
	newName = strings.TrimSpace(newName)
	if path == "" || newName == "" {
		return "", fmt.Errorf("%w: folder path and new name are required", ErrInvalid)
	}
	if strings.Contains(newName, "/") {
		return "", fmt.Errorf("%w: folder name cannot contain slashes", ErrInvalid)
	}

	parent := ""
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		parent = path[:idx]
	}
	if parent == "" {
		return newName, nil
	}
	return parent + "/" + newName, nil
}

// MoveTarget computes the path a folder takes when dragged under target. An
// empty target moves the folder to the root.
func MoveTarget(dragged, target string) (string, error) {
	dragged = NormalizeFolder(dragged)
	target = NormalizeFolder(target)
	if dragged == "" {
		return "", fmt.Errorf("%w: folder path is required", ErrInvalid)
	}
	if InFolder(target, dragged) {
		return "", fmt.Errorf("%w: cannot move a folder into itself", ErrInvalid)
	}

	name := dragged
	if idx := strings.LastIndex(dragged, "/"); idx >= 0 {
		name = dragged[idx+1:]
	}
	if target == "" {
		return name, nil
	}
	return target + "/" + name, nil
}

// ScopeKind enumerates the folder scopes a listing or graph read accepts.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeRoot
	ScopePrefix
)

// Destination reads a move target: "root" in any case means the top level,
// anything else is a folder path.
func Destination(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), RootFolder) {
		return ""
	}
	return raw
}

// Scope restricts a query to part of the folder space.
type Scope struct {
	Kind ScopeKind
	Path string
}

// AllFolders is the unrestricted scope.
var AllFolders = Scope{Kind: ScopeAll}

// ParseScope reads the folder query parameter: "" or "all" for every note,
// "root" for notes without a folder, anything else as a path prefix.
func ParseScope(raw string) Scope {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(trimmed) {
	case "", "all":
		return AllFolders
	case RootFolder:
		return Scope{Kind: ScopeRoot}
	}
	path := NormalizeFolder(trimmed)
	if path == "" {
		return AllFolders
	}
	return Scope{Kind: ScopePrefix, Path: path}
}

// Contains reports whether a note in folder falls inside the scope.
func (s Scope) Contains(folder string) bool {
	switch s.Kind {
	case ScopeRoot:
		return folder == ""
	case ScopePrefix:
		return InFolder(folder, s.Path)
	default:
		return true
	}
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeRoot:
		return RootFolder
	case ScopePrefix:
		return s.Path
	default:
		return "all"
	}
}
