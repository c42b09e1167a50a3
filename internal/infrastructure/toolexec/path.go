package toolexec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// errPathOutsideRootMsg is the text of the error resolvePath returns, and
// so of the failed tool result, when a path argument escapes the project
// root.
const errPathOutsideRootMsg = "path outside project root"

// resolvePath joins path with root and canonicalizes it, failing closed if
// the result escapes root (spec §4.3 safety invariant, §8 invariant 12).
func resolvePath(root, path string) (string, error) {
	if path == "" {
		path = "."
	}
	joined := path
	if !filepath.IsAbs(path) {
		joined = filepath.Join(root, path)
	}
	clean := filepath.Clean(joined)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve project root: %w", err)
	}
	absClean, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	rel, err := filepath.Rel(absRoot, absClean)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(errPathOutsideRootMsg)
	}

	return absClean, nil
}
