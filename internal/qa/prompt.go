package qa

import (
	"fmt"
	"strings"

	"github.com/codequery/codequery/internal/db"
)

// buildContext renders retrieved chunks as labeled sections, in retrieval
// order, for inclusion in the generation prompt.
func buildContext(matches []db.ChunkMatch) string {
	var b strings.Builder
	for i, m := range matches {
		fmt.Fprintf(&b, "--- Source %d: %s (lines %d-%d) ---\n%s\n\n",
			i+1, m.FilePath, m.LineStart, m.LineEnd, m.ChunkText)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildPrompt instructs the backend to answer strictly from the supplied
// context and to cite file and line references.
func buildPrompt(question, context string) string {
	return fmt.Sprintf(`You are an expert code analyst. Answer the following question
about a codebase using ONLY the provided source code context.
Be specific, reference file names and line numbers when relevant.

CONTEXT:
%s

QUESTION: %s

ANSWER:`, context, question)
}
