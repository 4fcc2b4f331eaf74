package chunking

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/codequery/codequery/internal/logging"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestGenericChunks_TilesFileWithWindows(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 120)
	for i := range lines {
		lines[i] = "print(i)"
	}
	path := writeTempFile(t, dir, "sample.py", strings.Join(lines, "\n"))

	c := New(50, logging.New(logr.Discard()))
	chunks := c.ChunkFile(path, dir)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	bounds := [][2]int{{1, 50}, {51, 100}, {101, 120}}
	for i, want := range bounds {
		if chunks[i].LineStart != want[0] || chunks[i].LineEnd != want[1] {
			t.Fatalf("chunk %d covers [%d,%d], want [%d,%d]",
				i, chunks[i].LineStart, chunks[i].LineEnd, want[0], want[1])
		}
		if chunks[i].Type != TypeBlock {
			t.Fatalf("chunk %d type %q, want %q", i, chunks[i].Type, TypeBlock)
		}
		if chunks[i].Language != "python" {
			t.Fatalf("chunk %d language %q, want python", i, chunks[i].Language)
		}
		if chunks[i].FilePath != "sample.py" {
			t.Fatalf("chunk %d path %q, want relative sample.py", i, chunks[i].FilePath)
		}
	}
}

func TestGenericChunks_DropsWhitespaceOnlyWindows(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("\n", 50) + "x = 1"
	path := writeTempFile(t, dir, "sparse.py", content)

	c := New(50, logging.New(logr.Discard()))
	chunks := c.ChunkFile(path, dir)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].LineStart != 51 || chunks[0].LineEnd != 51 {
		t.Fatalf("chunk covers [%d,%d], want [51,51]", chunks[0].LineStart, chunks[0].LineEnd)
	}
}

func TestChunkFile_EmptyFileYieldsNoChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "empty.py", "")

	c := New(50, logging.New(logr.Discard()))
	if chunks := c.ChunkFile(path, dir); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty file, got %d", len(chunks))
	}
}

func TestChunkFile_SkipsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.py")
	if err := os.WriteFile(path, []byte{0x7f, 0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatalf("write binary file: %v", err)
	}

	c := New(50, logging.New(logr.Discard()))
	if chunks := c.ChunkFile(path, dir); len(chunks) != 0 {
		t.Fatalf("expected no chunks for binary file, got %d", len(chunks))
	}
}

func TestChunkFile_MissingFileYieldsNoChunks(t *testing.T) {
	dir := t.TempDir()
	c := New(50, logging.New(logr.Discard()))
	if chunks := c.ChunkFile(filepath.Join(dir, "gone.py"), dir); len(chunks) != 0 {
		t.Fatalf("expected no chunks for missing file, got %d", len(chunks))
	}
}
