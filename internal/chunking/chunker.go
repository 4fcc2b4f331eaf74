package chunking

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/codequery/codequery/internal/logging"
)

// DefaultWindowLines is the generic strategy's window size.
const DefaultWindowLines = 50

// Chunk is a contiguous labeled fragment of a source file, the unit of
// embedding and retrieval.
type Chunk struct {
	FilePath  string
	Text      string
	Type      string
	LineStart int
	LineEnd   int
	Language  string
}

// Chunker splits source files into chunks. Go files get structural parsing;
// every other language falls back to fixed-size line windows.
type Chunker struct {
	windowLines int
	structural  *goParser
	log         logging.Logger
}

func New(windowLines int, log logging.Logger) *Chunker {
	if windowLines <= 0 {
		windowLines = DefaultWindowLines
	}
	return &Chunker{
		windowLines: windowLines,
		structural:  newGoParser(),
		log:         log.WithName("chunker"),
	}
}

// ChunkFile reads one file and returns its chunks. Unreadable or binary files
// yield an empty list; per-file problems are logged, never escalated.
func (c *Chunker) ChunkFile(path, root string) []Chunk {
	content, ok := c.read(path)
	if !ok {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	lang := LanguageForPath(path)

	var chunks []Chunk
	if lang == "go" {
		chunks = c.structural.parse(rel, content)
	}
	if len(chunks) == 0 {
		chunks = c.genericChunks(rel, string(content), lang)
	}

	c.log.Debug("chunked file", "path", rel, "language", lang, "chunks", len(chunks))
	return chunks
}

// genericChunks tiles the file with non-overlapping windows; window i covers
// lines [i*N+1, min((i+1)*N, total)]. Whitespace-only windows are dropped.
func (c *Chunker) genericChunks(rel, content, lang string) []Chunk {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	for i := 0; i < len(lines); i += c.windowLines {
		end := i + c.windowLines
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[i:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			FilePath:  rel,
			Text:      text,
			Type:      TypeBlock,
			LineStart: i + 1,
			LineEnd:   end,
			Language:  lang,
		})
	}
	return chunks
}

// read returns the file content, or false for empty, binary, or unreadable
// files.
func (c *Chunker) read(path string) ([]byte, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		c.log.Info("skipping unreadable file", "path", path, "reason", err.Error())
		return nil, false
	}
	if len(content) == 0 {
		return nil, false
	}
	if bytes.ContainsRune(content, 0) {
		c.log.Info("skipping binary file", "path", path)
		return nil, false
	}
	return content, true
}
