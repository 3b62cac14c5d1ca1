// Package preview renders a runmd page to a standalone HTML file so the
// result can be checked in a browser.
package preview

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
%s</body>
</html>
`

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		gmhtml.WithUnsafe(), // Pages may embed raw HTML such as the footer logo
	),
)

// Render converts markdown to a complete HTML page.
func Render(w io.Writer, title string, markdown []byte) error {
	var body bytes.Buffer
	if err := md.Convert(markdown, &body); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}

	_, err := fmt.Fprintf(w, pageTemplate, html.EscapeString(title), body.String())
	return err
}

// WriteFile renders markdown into the HTML file at path.
func WriteFile(path, title string, markdown []byte) error {
	var buf bytes.Buffer
	if err := Render(&buf, title, markdown); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}
