package chunking

import "path/filepath"

// Chunk type tags stored alongside every fragment.
const (
	TypeFunction = "function"
	TypeClass    = "class"
	TypeBlock    = "block"
)

// LangUnknown is assigned to files whose extension is not in the table.
// Such files are still chunked with the generic strategy; the table only
// gates discovery.
const LangUnknown = "unknown"

// extensionLanguages maps file extensions to language tags. The set doubles
// as the discovery filter, so both sides must stay in sync with stored chunk
// metadata.
var extensionLanguages = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".jsx":   "javascript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".hpp":   "cpp",
	".go":    "go",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".scala": "scala",
	".cs":    "csharp",
}

// LanguageForPath returns the language tag for a file path, or LangUnknown.
func LanguageForPath(path string) string {
	if lang, ok := extensionLanguages[filepath.Ext(path)]; ok {
		return lang
	}
	return LangUnknown
}

// SupportedExtension reports whether discovery should keep the file.
func SupportedExtension(path string) bool {
	_, ok := extensionLanguages[filepath.Ext(path)]
	return ok
}
