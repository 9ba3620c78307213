package conversions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"docproc-backend/internal/documents"
	"docproc-backend/internal/extract"
)

// Format is a conversion target.
type Format struct {
	Name        string
	Extension   string
	ContentType string
}

var formats = []Format{
	{Name: "txt", Extension: "txt", ContentType: "text/plain; charset=utf-8"},
	{Name: "md", Extension: "md", ContentType: "text/markdown; charset=utf-8"},
	{Name: "json", Extension: "json", ContentType: "application/json"},
	{Name: "html", Extension: "html", ContentType: "text/html; charset=utf-8"},
}

var formatAliases = map[string]string{
	"text":     "txt",
	"markdown": "md",
	"htm":      "html",
}

// LookupFormat resolves a user-supplied target such as "MD" or ".markdown".
func LookupFormat(name string) (Format, bool) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	if alias, ok := formatAliases[name]; ok {
		name = alias
	}
	for _, f := range formats {
		if f.Name == name {
			return f, true
		}
	}
	return Format{}, false
}

// FormatNames lists the supported targets.
func FormatNames() []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.Name)
	}
	return out
}

// Renderer turns a document's extracted text into an output format.
type Renderer struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// NewRenderer builds a renderer with markdown table support.
func NewRenderer() *Renderer {
	return &Renderer{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

type jsonExport struct {
	DocumentID   int64             `json:"documentId"`
	OriginalName string            `json:"originalName"`
	MimeType     string            `json:"mimeType"`
	Metadata     *extract.Metadata `json:"metadata"`
	Summary      *string           `json:"summary,omitempty"`
	Text         string            `json:"text"`
}

// Render produces the output bytes for doc in format f.
func (r *Renderer) Render(doc documents.Document, f Format) ([]byte, error) {
	if doc.ExtractedText == nil {
		return nil, documents.ErrPrecondition
	}
	text := *doc.ExtractedText

	switch f.Name {
	case "txt":
		return []byte(text), nil
	case "json":
		out, err := json.MarshalIndent(jsonExport{
			DocumentID:   doc.ID,
			OriginalName: doc.OriginalName,
			MimeType:     doc.MimeType,
			Metadata:     doc.Metadata,
			Summary:      doc.Summary,
			Text:         text,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return out, nil
	case "html":
		body := r.policy.Sanitize(htmlBody(doc.OriginalName, text))
		var buf bytes.Buffer
		buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
		buf.WriteString(html.EscapeString(doc.OriginalName))
		buf.WriteString("</title>\n</head>\n<body>\n")
		buf.WriteString(body)
		buf.WriteString("\n</body>\n</html>\n")
		return buf.Bytes(), nil
	case "md":
		md, err := r.md.ConvertString(htmlBody(doc.OriginalName, text))
		if err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		return []byte(md + "\n"), nil
	}
	return nil, errors.New("unknown format " + f.Name)
}

// htmlBody lays out extracted text: blank-line separated blocks become
// paragraphs, tab-separated blocks become tables and "Sheet: " lines
// become headings.
func htmlBody(title, text string) string {
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(title) + "</h1>\n")

	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		if name, ok := strings.CutPrefix(lines[0], "Sheet: "); ok {
			b.WriteString("<h2>" + html.EscapeString(name) + "</h2>\n")
			lines = lines[1:]
			if len(lines) == 0 {
				continue
			}
		}
		if isTabular(lines) {
			writeTable(&b, lines)
			continue
		}
		escaped := make([]string, len(lines))
		for i, l := range lines {
			escaped[i] = html.EscapeString(l)
		}
		b.WriteString("<p>" + strings.Join(escaped, "<br>") + "</p>\n")
	}
	return b.String()
}

func nonEmptyLines(block string) []string {
	var out []string
	for _, l := range strings.Split(block, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func isTabular(lines []string) bool {
	for _, l := range lines {
		if !strings.Contains(l, "\t") {
			return false
		}
	}
	return true
}

func writeTable(b *strings.Builder, lines []string) {
	b.WriteString("<table>\n")
	for i, l := range lines {
		tag := "td"
		if i == 0 {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, cell := range strings.Split(l, "\t") {
			b.WriteString("<" + tag + ">" + html.EscapeString(cell) + "</" + tag + ">")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
}
