package toolexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func tempRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return dir
}

func TestReadFileTool_ReturnsExactlyLLinesWithPrefixes(t *testing.T) {
	root := tempRoot(t)
	content := "alpha\nbeta\ngamma\n"
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(root, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{"path": "f.txt"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	want := "1 | alpha\n2 | beta\n3 | gamma\n"
	if res.Output != want {
		t.Fatalf("got %q want %q", res.Output, want)
	}
}

func TestReadFileTool_LineRange(t *testing.T) {
	root := tempRoot(t)
	content := "a\nb\nc\nd\ne\n"
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(root, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "f.txt", "start_line": 2, "end_line": 4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "2 | b\n3 | c\n4 | d\n"
	if res.Output != want {
		t.Fatalf("got %q want %q", res.Output, want)
	}
}

func TestResolvePath_RejectsEscapeOutsideRoot(t *testing.T) {
	root := tempRoot(t)
	_, err := resolvePath(root, "../../etc/passwd")
	if err == nil {
		t.Fatal("expected error for path outside root")
	}
	if err.Error() != errPathOutsideRootMsg {
		t.Fatalf("got %q want %q", err.Error(), errPathOutsideRootMsg)
	}
}

func TestEditFileTool_NoMatchLeavesFileUntouched(t *testing.T) {
	root := tempRoot(t)
	original := "hello world\n"
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditFileTool(root, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "f.txt", "old_str": "missing", "new_str": "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for no match")
	}

	after, _ := os.ReadFile(path)
	if string(after) != original {
		t.Fatalf("file was modified on a failed edit: %q", after)
	}
}

func TestEditFileTool_AmbiguousMatchLeavesFileUntouched(t *testing.T) {
	root := tempRoot(t)
	original := "dup dup\n"
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditFileTool(root, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "f.txt", "old_str": "dup", "new_str": "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for ambiguous match")
	}

	after, _ := os.ReadFile(path)
	if string(after) != original {
		t.Fatalf("file was modified on a failed edit: %q", after)
	}
}

func TestEditFileTool_UniqueMatchReplaces(t *testing.T) {
	root := tempRoot(t)
	path := filepath.Join(root, "f.txt")
	if err := os.WriteFile(path, []byte("one two three\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewEditFileTool(root, zap.NewNop())
	res, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "f.txt", "old_str": "two", "new_str": "TWO",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}

	after, _ := os.ReadFile(path)
	if string(after) != "one TWO three\n" {
		t.Fatalf("got %q", after)
	}
}
