package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DocumentType classifies the document in view. Unknown extensions and
// type names normalize to TypeOther.
type DocumentType string

const (
	TypeMarkdown   DocumentType = "markdown"
	TypeHTML       DocumentType = "html"
	TypeText       DocumentType = "text"
	TypePython     DocumentType = "python"
	TypeJavaScript DocumentType = "javascript"
	TypeTypeScript DocumentType = "typescript"
	TypeJSON       DocumentType = "json"
	TypeYAML       DocumentType = "yaml"
	TypeOther      DocumentType = "other"
)

// extensionTypes maps file extensions (lowercase, with dot) to types.
var extensionTypes = map[string]DocumentType{
	".md":       TypeMarkdown,
	".markdown": TypeMarkdown,
	".html":     TypeHTML,
	".htm":      TypeHTML,
	".txt":      TypeText,
	".text":     TypeText,
	".py":       TypePython,
	".js":       TypeJavaScript,
	".mjs":      TypeJavaScript,
	".ts":       TypeTypeScript,
	".tsx":      TypeTypeScript,
	".json":     TypeJSON,
	".yaml":     TypeYAML,
	".yml":      TypeYAML,
}

// ParseDocumentType normalizes a literal type name or file extension to a
// DocumentType. Unknown input yields TypeOther, never an error.
func ParseDocumentType(s string) DocumentType {
	v := strings.ToLower(strings.TrimSpace(s))
	switch DocumentType(v) {
	case TypeMarkdown, TypeHTML, TypeText, TypePython, TypeJavaScript,
		TypeTypeScript, TypeJSON, TypeYAML:
		return DocumentType(v)
	}
	if !strings.HasPrefix(v, ".") {
		v = "." + v
	}
	if t, ok := extensionTypes[v]; ok {
		return t
	}
	return TypeOther
}

// DocumentMetadata describes the document currently in view. Immutable,
// never persisted by the core.
type DocumentMetadata struct {
	Title         string
	Type          DocumentType
	Filename      string
	FileExtension string
	LastModified  time.Time
	FileSize      int64
	Encoding      string
	Language      string
}

// NewDocumentMetadata validates the explicit-fields constructor. Encoding
// defaults to "utf-8"; a negative file size is rejected.
func NewDocumentMetadata(title string, docType DocumentType, filename string, fileSize int64) (*DocumentMetadata, error) {
	if fileSize < 0 {
		return nil, fmt.Errorf("file size must be >= 0, got %d", fileSize)
	}
	if docType == "" {
		docType = TypeOther
	}
	return &DocumentMetadata{
		Title:         title,
		Type:          docType,
		Filename:      filename,
		FileExtension: strings.ToLower(filepath.Ext(filename)),
		FileSize:      fileSize,
		Encoding:      "utf-8",
	}, nil
}

// DocumentFromPath builds metadata from a file path alone, inferring the
// type from the extension.
func DocumentFromPath(path string, fileSize int64) (*DocumentMetadata, error) {
	filename := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(filename))
	meta, err := NewDocumentMetadata("", ParseDocumentType(ext), filename, fileSize)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// IsCodeFile reports whether the document is source code.
func (d *DocumentMetadata) IsCodeFile() bool {
	switch d.Type {
	case TypePython, TypeJavaScript, TypeTypeScript:
		return true
	}
	return false
}

// IsDocumentation reports whether the document is prose documentation.
func (d *DocumentMetadata) IsDocumentation() bool {
	switch d.Type {
	case TypeMarkdown, TypeHTML, TypeText:
		return true
	}
	return false
}

// DisplayName returns the best human-readable name for the document:
// title, else filename, else a generic label with the type.
func (d *DocumentMetadata) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Filename != "" {
		return d.Filename
	}
	return fmt.Sprintf("Document (%s)", d.Type)
}
