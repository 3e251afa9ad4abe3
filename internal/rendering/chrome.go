package rendering

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultChromeTimeout bounds a single browser print.
const DefaultChromeTimeout = 45 * time.Second

// A4 in inches, as printToPDF expects.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// ChromeRenderer prints an HTML rendering of the document with headless Chrome.
type ChromeRenderer struct {
	Timeout time.Duration
	// ExecPath overrides the browser binary lookup.
	ExecPath string
}

// NewChrome returns a headless Chrome renderer.
func NewChrome() *ChromeRenderer {
	return &ChromeRenderer{Timeout: DefaultChromeTimeout}
}

// Name implements Renderer.
func (r *ChromeRenderer) Name() string { return BackendChrome }

type htmlData struct {
	Title    string
	Subtitle string
	Date     string
	Blocks   []Block
}

// HTML renders the HTML page that gets printed.
func (r *ChromeRenderer) HTML(doc *Document) (string, error) {
	content, err := templates.ReadFile("templates/report.html.tmpl")
	if err != nil {
		return "", &TemplateError{Message: "embedded template missing", Cause: err}
	}
	tmpl, err := template.New("report").Parse(string(content))
	if err != nil {
		return "", &TemplateError{Message: "failed to parse template", Cause: err}
	}

	var out bytes.Buffer
	err = tmpl.Execute(&out, htmlData{
		Title:    doc.Title,
		Subtitle: doc.Subtitle,
		Date:     formatDate(doc.Date),
		Blocks:   doc.Blocks,
	})
	if err != nil {
		return "", &TemplateError{Message: "failed to execute template", Cause: err}
	}
	return out.String(), nil
}

// Render prints the document to an A4 PDF.
func (r *ChromeRenderer) Render(ctx context.Context, doc *Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultChromeTimeout
	}
	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Backend: BackendChrome, Message: fmt.Sprintf("browser print failed for %q", doc.Title), Cause: err}
	}
	return pdf, nil
}
