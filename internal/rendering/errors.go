package rendering

import "fmt"

func describe(kind, msg string, cause error) string {
	if cause == nil {
		return kind + ": " + msg
	}
	return fmt.Sprintf("%s: %s: %v", kind, msg, cause)
}

// TemplateError is a report template that could not be loaded, parsed or executed.
type TemplateError struct {
	Message string
	Cause   error
}

func (e *TemplateError) Error() string { return describe("template error", e.Message, e.Cause) }
func (e *TemplateError) Unwrap() error { return e.Cause }

// RenderError is a report that a backend failed to turn into a PDF.
// Backend is empty when no backend was selected.
type RenderError struct {
	Backend string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	kind := "render error"
	if e.Backend != "" {
		kind = fmt.Sprintf("render error (%s)", e.Backend)
	}
	return describe(kind, e.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// CompileError is a failed pdflatex run. Log holds the tail of its output.
type CompileError struct {
	Log   string
	Cause error
}

func (e *CompileError) Error() string { return fmt.Sprintf("pdflatex failed: %v", e.Cause) }
func (e *CompileError) Unwrap() error { return e.Cause }
