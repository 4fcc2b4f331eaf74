package chunking

import (
	"strings"
	"testing"

	"github.com/go-logr/logr"

	"github.com/codequery/codequery/internal/logging"
)

const goSample = `package sample

import "fmt"

type Greeter interface {
	Greet() string
}

type Person struct {
	Name string
}

func (p Person) Greet() string {
	return fmt.Sprintf("hi %s", p.Name)
}

func Add(a, b int) int {
	return a + b
}

type Age int
`

func TestGoStructuralChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "sample.go", goSample)

	c := New(50, logging.New(logr.Discard()))
	chunks := c.ChunkFile(path, dir)

	var functions, classes int
	for _, ch := range chunks {
		switch ch.Type {
		case TypeFunction:
			functions++
		case TypeClass:
			classes++
		default:
			t.Fatalf("unexpected chunk type %q", ch.Type)
		}
		if ch.Language != "go" {
			t.Fatalf("chunk language %q, want go", ch.Language)
		}
	}
	// Greeter and Person are classes; Greet and Add are functions. The plain
	// "type Age int" declaration is neither.
	if functions != 2 {
		t.Fatalf("expected 2 function chunks, got %d", functions)
	}
	if classes != 2 {
		t.Fatalf("expected 2 class chunks, got %d", classes)
	}

	add := findChunk(t, chunks, "func Add")
	if add.LineStart != 17 || add.LineEnd != 19 {
		t.Fatalf("Add covers [%d,%d], want [17,19]", add.LineStart, add.LineEnd)
	}
	person := findChunk(t, chunks, "type Person")
	if person.Type != TypeClass {
		t.Fatalf("Person chunk type %q, want %q", person.Type, TypeClass)
	}
}

func TestGoFileWithoutDeclarationsFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "doc.go", "package sample\n\n// Package sample has no declarations yet.")

	c := New(50, logging.New(logr.Discard()))
	chunks := c.ChunkFile(path, dir)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 fallback chunk, got %d", len(chunks))
	}
	if chunks[0].Type != TypeBlock {
		t.Fatalf("fallback chunk type %q, want %q", chunks[0].Type, TypeBlock)
	}
	if chunks[0].Language != "go" {
		t.Fatalf("fallback chunk language %q, want go", chunks[0].Language)
	}
}

func findChunk(t *testing.T, chunks []Chunk, prefix string) Chunk {
	t.Helper()
	for _, ch := range chunks {
		if strings.HasPrefix(ch.Text, prefix) {
			return ch
		}
	}
	t.Fatalf("no chunk starting with %q", prefix)
	return Chunk{}
}
