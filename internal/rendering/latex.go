package rendering

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// DefaultLaTeXTimeout bounds a single pdflatex run.
const DefaultLaTeXTimeout = 30 * time.Second

// LaTeXRenderer compiles documents with pdflatex.
type LaTeXRenderer struct {
	// Command is the pdflatex binary; defaults to "pdflatex".
	Command string
	// TemplatePath overrides the embedded template when set.
	TemplatePath string
	Timeout      time.Duration
}

// NewLaTeX returns a pdflatex renderer with the embedded template.
func NewLaTeX() *LaTeXRenderer {
	return &LaTeXRenderer{Command: "pdflatex", Timeout: DefaultLaTeXTimeout}
}

// Name implements Renderer.
func (r *LaTeXRenderer) Name() string { return BackendLaTeX }

// latexData is the template view of a Document, already escaped.
type latexData struct {
	Title    string
	Subtitle string
	Date     string
	Blocks   []Block
}

// Source renders the LaTeX source of doc.
func (r *LaTeXRenderer) Source(doc *Document) (string, error) {
	tmpl, err := r.template()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, buildLaTeXData(doc)); err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}

// Render compiles doc to PDF in a temporary directory.
func (r *LaTeXRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	src, err := r.Source(doc)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "report-latex-*")
	if err != nil {
		return nil, &RenderError{Backend: BackendLaTeX, Message: "failed to create work directory", Cause: err}
	}
	defer os.RemoveAll(dir)

	texPath := filepath.Join(dir, "report.tex")
	if err := os.WriteFile(texPath, []byte(src), 0o600); err != nil {
		return nil, &RenderError{Backend: BackendLaTeX, Message: "failed to write LaTeX source", Cause: err}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultLaTeXTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := r.Command
	if command == "" {
		command = "pdflatex"
	}
	cmd := exec.CommandContext(runCtx, command,
		"-interaction=nonstopmode", "-halt-on-error",
		"-output-directory", dir, texPath)
	cmd.Dir = dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", timeout, runCtx.Err())
		}
		return nil, &CompileError{Log: tail(output.String(), 40), Cause: err}
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		return nil, &RenderError{Backend: BackendLaTeX, Message: "pdflatex produced no PDF", Cause: err}
	}
	return pdf, nil
}

func (r *LaTeXRenderer) template() (*template.Template, error) {
	var content []byte
	var err error
	if r.TemplatePath != "" {
		content, err = os.ReadFile(r.TemplatePath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, &TemplateError{Message: fmt.Sprintf("template file not found: %s", r.TemplatePath), Cause: err}
			}
			return nil, &TemplateError{Message: fmt.Sprintf("failed to read template file: %s", r.TemplatePath), Cause: err}
		}
	} else {
		content, err = templates.ReadFile("templates/report.tex.tmpl")
		if err != nil {
			return nil, &TemplateError{Message: "embedded template missing", Cause: err}
		}
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"escape": EscapeLaTeX,
	}).Parse(string(content))
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse template", Cause: err}
	}
	return tmpl, nil
}

func buildLaTeXData(doc *Document) *latexData {
	data := &latexData{
		Title:    EscapeLaTeX(doc.Title),
		Subtitle: EscapeLaTeX(doc.Subtitle),
		Date:     EscapeLaTeX(formatDate(doc.Date)),
		Blocks:   make([]Block, 0, len(doc.Blocks)),
	}
	for _, b := range doc.Blocks {
		escaped := Block{Kind: b.Kind, Text: latexParagraph(b.Text)}
		for _, item := range b.Items {
			escaped.Items = append(escaped.Items, latexParagraph(item))
		}
		data.Blocks = append(data.Blocks, escaped)
	}
	return data
}

// latexParagraph escapes text and keeps single line breaks inside a block.
func latexParagraph(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = EscapeLaTeX(strings.TrimSpace(line))
	}
	return strings.Join(lines, `\\`+"\n")
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
