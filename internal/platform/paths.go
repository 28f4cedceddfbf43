// Package platform normalizes paths given on the command line.
package platform

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath normalizes a path for the current platform
func NormalizePath(p string) string {
	// Convert to platform-specific separators
	normalized := filepath.Clean(p)

	// On Windows, ensure UNC paths are preserved
	if runtime.GOOS == "windows" {
		if strings.HasPrefix(p, "\\\\") && !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + normalized
		}
	}

	return normalized
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(p string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(p, "\\\\") || strings.HasPrefix(p, "//")
}

// Absolute resolves p against the working directory. An empty path means
// the working directory itself.
func Absolute(p string) (string, error) {
	if p == "" {
		p = "."
	}
	if IsUNCPath(p) {
		return NormalizePath(p), nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", &PathError{Path: p, Message: err.Error()}
	}
	return abs, nil
}

// ProjectName derives a project name from its directory
func ProjectName(dir string) string {
	name := filepath.Base(NormalizePath(dir))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "project"
	}
	return name
}

// RelativeToProject turns a path given by the user into a project-relative,
// forward-slash path. Absolute paths must lie inside root.
func RelativeToProject(root, p string) (string, error) {
	if err := ValidatePath(p); err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", &PathError{Path: p, Message: err.Error()}
		}
		p = rel
	}

	rel := path.Clean(filepath.ToSlash(p))
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", &PathError{Path: p, Message: "path is outside the project"}
	}
	return rel, nil
}

// CheckDisjoint fails when one directory contains the other
func CheckDisjoint(a, b string) error {
	absA, err := Absolute(a)
	if err != nil {
		return err
	}
	absB, err := Absolute(b)
	if err != nil {
		return err
	}

	sep := string(filepath.Separator)
	switch {
	case absA == absB:
		return &PathError{Path: b, Message: "remote folder is the project directory"}
	case strings.HasPrefix(absB, strings.TrimSuffix(absA, sep)+sep):
		return &PathError{Path: b, Message: "remote folder is inside the project directory"}
	case strings.HasPrefix(absA, strings.TrimSuffix(absB, sep)+sep):
		return &PathError{Path: b, Message: "project directory is inside the remote folder"}
	}
	return nil
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(p string) error {
	if p == "" {
		return &PathError{Path: p, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(p, char) && !IsUNCPath(p) {
				return &PathError{Path: p, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
