package render

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/quick"
)

// SyntaxRenderer applies syntax highlighting based on file type. Used when a
// pane is pointed at a source file rather than a log.
type SyntaxRenderer struct {
	lexerName   string
	syntaxTheme string
}

// NewSyntaxRenderer creates a syntax highlighting renderer for the filename
func NewSyntaxRenderer(filename string) *SyntaxRenderer {
	lexer := lexers.Match(filename)
	lexerName := "plaintext"
	if lexer != nil {
		lexerName = lexer.Config().Name
	}

	return &SyntaxRenderer{
		lexerName:   lexerName,
		syntaxTheme: "monokai",
	}
}

// Render applies syntax highlighting to a line
func (r *SyntaxRenderer) Render(line string) string {
	if line == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, line, r.lexerName, "terminal16m", r.syntaxTheme); err != nil {
		return line
	}

	// quick.Highlight appends newlines that would break row layout
	highlighted := strings.ReplaceAll(buf.String(), "\n", "")
	return strings.ReplaceAll(highlighted, "\r", "")
}

// IsSyntaxHighlightable reports whether the file type has a useful lexer
func IsSyntaxHighlightable(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))

	syntaxExts := map[string]bool{
		".go": true, ".rs": true, ".py": true, ".js": true, ".ts": true,
		".c": true, ".cpp": true, ".h": true, ".java": true, ".rb": true,
		".sh": true, ".bash": true, ".yaml": true, ".yml": true,
		".json": true, ".toml": true, ".xml": true, ".sql": true, ".md": true,
	}
	if syntaxExts[ext] {
		return true
	}

	base := strings.ToLower(filepath.Base(filename))
	specialFiles := map[string]bool{
		"makefile": true, "dockerfile": true, "cmakelists.txt": true,
	}
	return specialFiles[base]
}
