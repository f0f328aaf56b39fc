package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentType classifies an indexed document.
type DocumentType string

const (
	DocumentMarkdown DocumentType = "markdown"
	DocumentCode     DocumentType = "code"
	DocumentConfig   DocumentType = "config"
	DocumentOther    DocumentType = "other"
)

var validDocumentTypes = map[DocumentType]bool{
	DocumentMarkdown: true,
	DocumentCode:     true,
	DocumentConfig:   true,
	DocumentOther:    true,
}

func (t DocumentType) Valid() bool { return validDocumentTypes[t] }

// ParseDocumentType parses a document type name.
func ParseDocumentType(s string) (DocumentType, error) {
	return parseEnum("document type", s, validDocumentTypes)
}

var documentExtensions = map[string]DocumentType{
	".md":       DocumentMarkdown,
	".mdx":      DocumentMarkdown,
	".markdown": DocumentMarkdown,
	".txt":      DocumentOther,
	".go":       DocumentCode,
	".ts":       DocumentCode,
	".tsx":      DocumentCode,
	".js":       DocumentCode,
	".jsx":      DocumentCode,
	".py":       DocumentCode,
	".rs":       DocumentCode,
	".java":     DocumentCode,
	".rb":       DocumentCode,
	".sh":       DocumentCode,
	".sql":      DocumentCode,
	".c":        DocumentCode,
	".h":        DocumentCode,
	".toml":     DocumentConfig,
	".yaml":     DocumentConfig,
	".yml":      DocumentConfig,
	".json":     DocumentConfig,
	".ini":      DocumentConfig,
	".env":      DocumentConfig,
	".conf":     DocumentConfig,
}

// DocumentTypeFor classifies a path by its extension.
func DocumentTypeFor(path string) DocumentType {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" && strings.HasPrefix(filepath.Base(path), ".env") {
		return DocumentConfig
	}
	if t, ok := documentExtensions[ext]; ok {
		return t
	}
	return DocumentOther
}

// Document is an indexed file, unique by Path.
type Document struct {
	ID           string       `json:"id"`
	Path         string       `json:"path"`
	Name         string       `json:"name"`
	Content      string       `json:"content"`
	Type         DocumentType `json:"type"`
	LastModified time.Time    `json:"last_modified"`
	Size         *int64       `json:"size,omitempty"`
}

// DocumentInput is the upsert payload for a document.
type DocumentInput struct {
	Path    string
	Name    string
	Content string
	Type    DocumentType
	Size    *int64
}

func (in DocumentInput) Validate() error {
	if err := required("path", in.Path); err != nil {
		return err
	}
	if err := required("name", in.Name); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return enumError("document type", in.Type, validDocumentTypes)
	}
	return nil
}

// Chunk is a contiguous section of a document's content.
type Chunk struct {
	DocumentID string `json:"document_id,omitempty"`
	Seq        int    `json:"seq"`
	Text       string `json:"text"`
	StartLine  int    `json:"start_line,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`
}

// DocumentMatch is a document search hit with the chunk that matched, if any.
type DocumentMatch struct {
	Document
	Match *Chunk `json:"match,omitempty"`
}
