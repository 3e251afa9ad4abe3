package rendering

import "strings"

// latexEscaper maps characters that pdflatex treats as markup, plus the
// glyphs report text carries that the default font encoding lacks.
var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`%`, `\%`,
	`#`, `\#`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
	`<`, `\textless{}`,
	`>`, `\textgreater{}`,
	`|`, `\textbar{}`,
	`•`, `\textbullet{}`,
)

// EscapeLaTeX makes interview text (answers, feedback, resource titles) safe
// to place in the report template.
func EscapeLaTeX(text string) string {
	return latexEscaper.Replace(text)
}
