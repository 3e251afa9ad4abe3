// Package rendering turns a classified report document into a PDF, either
// through pdflatex or through headless Chrome.
package rendering

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"
)

// BlockKind classifies a document block.
type BlockKind string

const (
	BlockHeading BlockKind = "heading"
	BlockBullets BlockKind = "bullets"
	BlockBody    BlockKind = "body"
)

// Block is one paragraph-level unit of a document. Items is set for bullet
// blocks, Text for the others.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Items []string  `json:"items,omitempty"`
}

// Document is a titled sequence of blocks.
type Document struct {
	Title    string
	Subtitle string
	Date     time.Time
	Blocks   []Block
}

// Renderer produces PDF bytes for a document.
type Renderer interface {
	Name() string
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// Backend names.
const (
	BackendLaTeX  = "latex"
	BackendChrome = "chrome"
)

//go:embed templates/*
var templates embed.FS

// New returns the renderer for a backend name.
func New(backend string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendLaTeX:
		return NewLaTeX(), nil
	case BackendChrome:
		return NewChrome(), nil
	default:
		return nil, &RenderError{Message: fmt.Sprintf("unknown renderer %q", backend)}
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("January 2, 2006")
}
