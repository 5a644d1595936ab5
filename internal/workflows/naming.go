package workflows

import (
	"fmt"
	"strings"
)

// Extension is the suffix every persisted workflow carries.
const Extension = ".json"

// DefaultUnsavedName is the base name given to documents without a path.
const DefaultUnsavedName = "Unsaved Workflow"

// AppendExtension adds Extension to path unless it is already there.
func AppendExtension(path string) string {
	if strings.HasSuffix(strings.ToLower(path), Extension) {
		return path
	}
	return path + Extension
}

// TrimExtension removes a trailing Extension.
func TrimExtension(name string) string {
	if strings.HasSuffix(strings.ToLower(name), Extension) {
		return name[:len(name)-len(Extension)]
	}
	return name
}

// SplitPath splits path on the separator it uses. Backslashes are only
// treated as separators when the path contains no forward slash.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	sep := "/"
	if !strings.Contains(path, "/") && strings.Contains(path, `\`) {
		sep = `\`
	}
	return strings.Split(path, sep)
}

// NameFromPath returns the display name for path: its last segment without
// the extension.
func NameFromPath(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return ""
	}
	return TrimExtension(parts[len(parts)-1])
}

// unsavedName returns the generated name for the n-th unsaved document, 1-based.
func unsavedName(n int) string {
	if n <= 1 {
		return DefaultUnsavedName
	}
	return fmt.Sprintf("%s (%d)", DefaultUnsavedName, n)
}
