package toolexec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	domaintool "github.com/agentcore/core/internal/domain/tool"
	"go.uber.org/zap"
)

const readFileMaxChars = 10000

// ReadFileTool implements spec §4.3 read_file: 1-based inclusive line
// range, each line prefixed "{n} | {content}", truncated past 10000 chars
// with a footer noting how many of how many lines were shown. Grounded in
// the teacher's ReadFileTool, rewritten to use native os/filepath calls so
// the exact line-prefix format (invariant §8-10) is guaranteed rather than
// delegated to a shelled-out `sed`/`cat`.
type ReadFileTool struct {
	root   string
	logger *zap.Logger
}

func NewReadFileTool(root string, logger *zap.Logger) *ReadFileTool {
	return &ReadFileTool{root: root, logger: logger}
}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Kind() domaintool.Kind { return domaintool.KindRead }
func (t *ReadFileTool) Description() string {
	return "Read a file's contents, optionally restricted to a 1-based inclusive line range. Each line is prefixed with its line number."
}
func (t *ReadFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":       map[string]interface{}{"type": "string"},
			"start_line": map[string]interface{}{"type": "integer"},
			"end_line":   map[string]interface{}{"type": "integer"},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := argString(args, "path")
	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error(), Output: err.Error()}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		msg := fmt.Sprintf("failed to read %s: %v", path, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	lines := splitLines(string(data))
	start, end := 1, len(lines)
	if v, ok := argInt(args, "start_line"); ok && v > 0 {
		start = v
	}
	if v, ok := argInt(args, "end_line"); ok && v > 0 {
		end = v
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}

	var b strings.Builder
	shown := 0
	for i := start; i <= end && i <= len(lines); i++ {
		fmt.Fprintf(&b, "%d | %s\n", i, lines[i-1])
		shown++
	}

	out := b.String()
	if len(out) > readFileMaxChars {
		out = out[:readFileMaxChars]
		shown = strings.Count(out, "\n")
		out += fmt.Sprintf("\n…(truncated, showing %d of %d lines)", shown, len(lines))
	}

	return &domaintool.Result{Success: true, Output: out}, nil
}

// splitLines splits on "\n" without producing a trailing empty element for
// a file that ends with a newline, matching common editor semantics for
// "L lines" (spec §8 invariant 10: a file of L lines yields exactly L
// prefixed lines).
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(content, "\n")
	return strings.Split(trimmed, "\n")
}

// WriteFileTool implements spec §4.3 write_file: overwrite, create parent
// dirs as needed.
type WriteFileTool struct {
	root   string
	logger *zap.Logger
}

func NewWriteFileTool(root string, logger *zap.Logger) *WriteFileTool {
	return &WriteFileTool{root: root, logger: logger}
}

func (t *WriteFileTool) Name() string         { return "write_file" }
func (t *WriteFileTool) Kind() domaintool.Kind { return domaintool.KindEdit }
func (t *WriteFileTool) Description() string {
	return "Overwrite a file with the given content, creating parent directories as needed. Use only for new files or large rewrites; prefer edit_file otherwise."
}
func (t *WriteFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string"},
			"content": map[string]interface{}{"type": "string"},
		},
		"required": []string{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(_ context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := argString(args, "path")
	content, _ := argString(args, "content")

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error(), Output: err.Error()}, nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		msg := fmt.Sprintf("failed to create parent directories: %v", err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		msg := fmt.Sprintf("failed to write %s: %v", path, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	return &domaintool.Result{Success: true, Output: fmt.Sprintf("file written: %s", path)}, nil
}

// EditFileTool implements spec §4.3/§8-11 edit_file: exactly one
// occurrence of old_str is replaced; zero or multiple occurrences fail
// with a descriptive error and leave the file byte-identical.
type EditFileTool struct {
	root   string
	logger *zap.Logger
}

func NewEditFileTool(root string, logger *zap.Logger) *EditFileTool {
	return &EditFileTool{root: root, logger: logger}
}

func (t *EditFileTool) Name() string         { return "edit_file" }
func (t *EditFileTool) Kind() domaintool.Kind { return domaintool.KindEdit }
func (t *EditFileTool) Description() string {
	return "Replace a unique occurrence of old_str with new_str in a file. Fails if old_str is missing or ambiguous."
}
func (t *EditFileTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path":    map[string]interface{}{"type": "string"},
			"old_str": map[string]interface{}{"type": "string"},
			"new_str": map[string]interface{}{"type": "string"},
		},
		"required": []string{"path", "old_str", "new_str"},
	}
}

func (t *EditFileTool) Execute(_ context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := argString(args, "path")
	oldStr, _ := argString(args, "old_str")
	newStr, _ := argString(args, "new_str")

	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error(), Output: err.Error()}, nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		msg := fmt.Sprintf("failed to read %s: %v", path, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	content := string(data)
	count := strings.Count(content, oldStr)
	switch {
	case count == 0:
		msg := "no match; verify old text"
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	case count > 1:
		msg := fmt.Sprintf("%d matches; provide more context to disambiguate", count)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	updated := strings.Replace(content, oldStr, newStr, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		msg := fmt.Sprintf("failed to write %s: %v", path, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	return &domaintool.Result{Success: true, Output: fmt.Sprintf("file edited: %s", path)}, nil
}

// ListDirTool implements spec §4.3 list_dir: one entry per line, a marker
// distinguishing directories from files.
type ListDirTool struct {
	root   string
	logger *zap.Logger
}

func NewListDirTool(root string, logger *zap.Logger) *ListDirTool {
	return &ListDirTool{root: root, logger: logger}
}

func (t *ListDirTool) Name() string         { return "list_dir" }
func (t *ListDirTool) Kind() domaintool.Kind { return domaintool.KindRead }
func (t *ListDirTool) Description() string  { return "List the entries of a directory, one per line." }
func (t *ListDirTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"path": map[string]interface{}{"type": "string"}},
		"required":   []string{"path"},
	}
}

func (t *ListDirTool) Execute(_ context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	path, _ := argString(args, "path")
	resolved, err := resolvePath(t.root, path)
	if err != nil {
		return &domaintool.Result{Success: false, Error: err.Error(), Output: err.Error()}, nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		msg := fmt.Sprintf("failed to list %s: %v", path, err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			fmt.Fprintf(&b, "[d] %s\n", e.Name())
		} else {
			fmt.Fprintf(&b, "[f] %s\n", e.Name())
		}
	}
	return &domaintool.Result{Success: true, Output: strings.TrimRight(b.String(), "\n")}, nil
}

func argString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func argInt(args map[string]interface{}, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}
