package editor

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage is the identifier assigned when a file's extension is
// not in the detection table.
const DefaultLanguage = "plaintext"

// languageByExt maps lower-cased extensions (without the dot) to the
// language identifiers the rest of the product understands. Detection is
// exact-match on the extension only; file contents are never inspected.
var languageByExt = map[string]string{
	"go":    "go",
	"py":    "python",
	"js":    "javascript",
	"jsx":   "javascript",
	"mjs":   "javascript",
	"ts":    "typescript",
	"tsx":   "typescript",
	"rs":    "rust",
	"java":  "java",
	"kt":    "kotlin",
	"rb":    "ruby",
	"php":   "php",
	"c":     "c",
	"h":     "c",
	"cpp":   "cpp",
	"cc":    "cpp",
	"hpp":   "cpp",
	"cs":    "csharp",
	"swift": "swift",
	"scala": "scala",
	"lua":   "lua",
	"r":     "r",
	"sql":   "sql",
	"sh":    "shell",
	"bash":  "shell",
	"zsh":   "shell",
	"ps1":   "powershell",
	"yaml":  "yaml",
	"yml":   "yaml",
	"json":  "json",
	"xml":   "xml",
	"html":  "html",
	"css":   "css",
	"scss":  "scss",
	"less":  "less",
	"md":    "markdown",
	"toml":  "toml",
	"ini":   "ini",
	"txt":   DefaultLanguage,
}

// DetectLanguage returns the language identifier for a file name.
// Matching is case-insensitive on the extension and ignores the leading
// dot; unknown or missing extensions resolve to DefaultLanguage.
func DetectLanguage(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return DefaultLanguage
	}
	if lang, ok := languageByExt[ext]; ok {
		return lang
	}
	return DefaultLanguage
}
