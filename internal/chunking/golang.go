package chunking

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// goParser extracts function and type declarations from Go sources using
// Tree-sitter. The parser is not safe for concurrent use; the pipeline runs
// it serially.
type goParser struct {
	parser *sitter.Parser
}

func newGoParser() *goParser {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &goParser{parser: p}
}

// parse returns one chunk per declaration. A parse failure or a file with no
// declarations returns nil so the caller can fall back to generic windows.
func (p *goParser) parse(rel string, content []byte) []Chunk {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil
	}
	defer tree.Close()

	var chunks []Chunk
	p.walk(tree.RootNode(), rel, content, &chunks)
	return chunks
}

func (p *goParser) walk(node *sitter.Node, rel string, content []byte, out *[]Chunk) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration", "method_declaration":
		*out = append(*out, declChunk(node, rel, content, TypeFunction))
	case "type_declaration":
		if declaresCompositeType(node) {
			*out = append(*out, declChunk(node, rel, content, TypeClass))
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), rel, content, out)
	}
}

// declaresCompositeType reports whether a type_declaration defines a struct
// or interface, the closest Go has to class-like declarations.
func declaresCompositeType(node *sitter.Node) bool {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		spec := node.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		underlying := spec.ChildByFieldName("type")
		if underlying == nil {
			continue
		}
		switch underlying.Type() {
		case "struct_type", "interface_type":
			return true
		}
	}
	return false
}

func declChunk(node *sitter.Node, rel string, content []byte, chunkType string) Chunk {
	return Chunk{
		FilePath:  rel,
		Text:      string(content[node.StartByte():node.EndByte()]),
		Type:      chunkType,
		LineStart: int(node.StartPoint().Row) + 1,
		LineEnd:   int(node.EndPoint().Row) + 1,
		Language:  "go",
	}
}
