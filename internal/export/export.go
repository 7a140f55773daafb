// Package export renders the client's working set as Markdown or HTML.
package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/kuitang/wordfeed/internal/mirror"
	"github.com/kuitang/wordfeed/internal/s3client"
)

// Format selects the output representation.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat accepts "md", "markdown" or "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want md or html)", s)
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string { return string(f) }

// ContentType returns the MIME type used when uploading.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// markdownEscaper neutralizes characters that would turn a word into markup.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

// Markdown renders records as a numbered list in display order.
func Markdown(title string, records []mirror.Record) []byte {
	var buf bytes.Buffer
	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", markdownEscaper.Replace(title))
	}
	if len(records) == 0 {
		buf.WriteString("_No words._\n")
		return buf.Bytes()
	}
	for _, rec := range records {
		word := strings.Join(strings.Fields(rec.Word), " ")
		fmt.Fprintf(&buf, "- **%d** %s\n", rec.ID, markdownEscaper.Replace(word))
	}
	return buf.Bytes()
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; max-width: 720px; margin: 0 auto; padding: 2rem 1rem; }
ul { list-style: none; padding: 0; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`

var page = template.Must(template.New("export").Parse(pageTemplate))

// HTML renders records through Markdown and sanitizes the result.
// Record colors are not carried into the output since the sanitizer
// strips inline styles.
func HTML(title string, records []mirror.Record) ([]byte, error) {
	body := renderMarkdown(Markdown(title, records))

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body)})
	if err != nil {
		return nil, fmt.Errorf("failed to render export page: %w", err)
	}
	return buf.Bytes(), nil
}

func renderMarkdown(src []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock)
	doc := p.Parse(src)

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	return bluemonday.UGCPolicy().SanitizeBytes(markdown.Render(doc, renderer))
}

// Render dispatches on format.
func Render(format Format, title string, records []mirror.Record) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(title, records), nil
	case FormatHTML:
		return HTML(title, records)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// Upload renders and stores the export under name in the client's prefix.
// It returns the full object key.
func Upload(ctx context.Context, client *s3client.Client, name string, format Format, title string, records []mirror.Record) (string, error) {
	data, err := Render(format, title, records)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(name, "."+format.Ext()) {
		name += "." + format.Ext()
	}
	if err := client.PutObject(ctx, name, data, format.ContentType()); err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	return client.Key(name), nil
}
