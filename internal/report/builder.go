// Package report assembles the self-contained HTML analysis report.
package report

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/russross/blackfriday/v2"
)

// Block is one renderable unit inside a Section.
type Block interface {
	WriteHTML(b *strings.Builder)
}

// Section is a titled group of blocks. Sections without blocks are skipped
// unless KeepEmpty is set.
type Section struct {
	ID        string
	Title     string
	Blocks    []Block
	KeepEmpty bool
}

// Empty reports whether the section has nothing to render.
func (s Section) Empty() bool { return len(s.Blocks) == 0 }

func (s Section) WriteHTML(b *strings.Builder) {
	fmt.Fprintf(b, "<div class=\"section\" id=\"%s\">\n", esc(s.ID))
	fmt.Fprintf(b, "<h2 class=\"section-title\">%s</h2>\n", esc(s.Title))
	for _, blk := range s.Blocks {
		blk.WriteHTML(b)
	}
	b.WriteString("</div>\n")
}

// Document is a full report page.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
	Footer   []string
}

// Render produces the complete HTML page.
func (d Document) Render() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n<style>%s</style>\n</head>\n<body>\n", esc(d.Title), stylesheet)
	b.WriteString("<div class=\"container\">\n<div class=\"header\">\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n", esc(d.Title))
	if d.Subtitle != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", esc(d.Subtitle))
	}
	b.WriteString("</div>\n<div class=\"content\">\n")
	for _, s := range d.Sections {
		if s.Empty() && !s.KeepEmpty {
			continue
		}
		s.WriteHTML(&b)
	}
	b.WriteString("</div>\n<div class=\"footer\">\n")
	for _, line := range d.Footer {
		fmt.Fprintf(&b, "<p>%s</p>\n", esc(line))
	}
	b.WriteString("</div>\n</div>\n</body>\n</html>\n")
	return b.String()
}

// InfoItem is a label/value line.
type InfoItem struct {
	Label string
	Value string
}

// InfoList renders label/value pairs in a card.
type InfoList struct {
	Items []InfoItem
}

func (l InfoList) WriteHTML(b *strings.Builder) {
	b.WriteString("<div class=\"info-card\">\n")
	for _, it := range l.Items {
		fmt.Fprintf(b, "<div class=\"info-item\"><span class=\"info-label\">%s</span><span class=\"info-value\">%s</span></div>\n",
			esc(it.Label), esc(it.Value))
	}
	b.WriteString("</div>\n")
}

// Table renders a headed table; the last column of each row is emphasized.
type Table struct {
	Heading string
	Columns []string
	Rows    [][]string
}

func (t Table) WriteHTML(b *strings.Builder) {
	if t.Heading != "" {
		fmt.Fprintf(b, "<h3>%s</h3>\n", esc(t.Heading))
	}
	b.WriteString("<table>\n<thead><tr>")
	for _, c := range t.Columns {
		fmt.Fprintf(b, "<th>%s</th>", esc(c))
	}
	b.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range t.Rows {
		b.WriteString("<tr>")
		for i, cell := range row {
			if i == len(row)-1 {
				fmt.Fprintf(b, "<td><strong>%s</strong></td>", esc(cell))
				continue
			}
			fmt.Fprintf(b, "<td>%s</td>", esc(cell))
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody>\n</table>\n")
}

// Card is one highlighted result.
type Card struct {
	Title  string
	Value  string
	Detail string
}

// Cards renders a grid of stat cards.
type Cards struct {
	Heading string
	Items   []Card
}

func (c Cards) WriteHTML(b *strings.Builder) {
	if c.Heading != "" {
		fmt.Fprintf(b, "<h3>%s</h3>\n", esc(c.Heading))
	}
	b.WriteString("<div class=\"stats-grid\">\n")
	for _, it := range c.Items {
		fmt.Fprintf(b, "<div class=\"stat-card\"><h3>%s</h3><div class=\"stat-value\">%s</div><p>%s</p></div>\n",
			esc(it.Title), esc(it.Value), esc(it.Detail))
	}
	b.WriteString("</div>\n")
}

// PodiumEntry is one ranked row with its marker.
type PodiumEntry struct {
	Marker    string
	Name      string
	Score     string
	Breakdown string
}

// Podium renders ranked cards.
type Podium struct {
	Heading string
	Entries []PodiumEntry
}

func (p Podium) WriteHTML(b *strings.Builder) {
	if p.Heading != "" {
		fmt.Fprintf(b, "<h3>%s</h3>\n", esc(p.Heading))
	}
	for _, e := range p.Entries {
		fmt.Fprintf(b, "<div class=\"ranking-card\"><h3><span class=\"medal\">%s</span> %s - total: %s</h3><p>%s</p></div>\n",
			esc(e.Marker), esc(e.Name), esc(e.Score), esc(e.Breakdown))
	}
}

// Figure embeds PNG bytes as a data URI.
type Figure struct {
	Index int
	Title string
	PNG   []byte
}

func (f Figure) WriteHTML(b *strings.Builder) {
	b.WriteString("<div class=\"chart-container\">\n")
	fmt.Fprintf(b, "<div class=\"chart-title\">%d. %s</div>\n", f.Index, esc(f.Title))
	fmt.Fprintf(b, "<img src=\"data:image/png;base64,%s\" alt=\"%s\">\n", base64.StdEncoding.EncodeToString(f.PNG), esc(f.Title))
	b.WriteString("</div>\n")
}

// Notice replaces a figure that could not be produced.
type Notice struct {
	Index int
	Title string
	Text  string
}

func (n Notice) WriteHTML(b *strings.Builder) {
	b.WriteString("<div class=\"chart-container\">\n")
	fmt.Fprintf(b, "<div class=\"chart-title\">%d. %s</div>\n", n.Index, esc(n.Title))
	fmt.Fprintf(b, "<p class=\"notice\">%s</p>\n", esc(n.Text))
	b.WriteString("</div>\n")
}

// Paragraphs wraps each paragraph individually. With Markdown set each
// paragraph is rendered by blackfriday with raw HTML stripped.
type Paragraphs struct {
	Items    []string
	Markdown bool
}

func (p Paragraphs) WriteHTML(b *strings.Builder) {
	b.WriteString("<div class=\"ai-report\">\n")
	for _, it := range p.Items {
		if p.Markdown {
			b.Write(renderMarkdown(it))
			continue
		}
		fmt.Fprintf(b, "<p>%s</p>\n", esc(it))
	}
	b.WriteString("</div>\n")
}

func renderMarkdown(s string) []byte {
	r := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: blackfriday.SkipHTML})
	return blackfriday.Run([]byte(s), blackfriday.WithRenderer(r), blackfriday.WithExtensions(blackfriday.CommonExtensions))
}

func esc(s string) string { return html.EscapeString(s) }

const stylesheet = `
*{margin:0;padding:0;box-sizing:border-box}
body{font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;line-height:1.6;color:#333;background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);padding:20px}
.container{max-width:1200px;margin:0 auto;background:#fff;border-radius:10px;box-shadow:0 10px 40px rgba(0,0,0,.1);overflow:hidden}
.header{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:40px;text-align:center}
.header h1{font-size:2.5em;margin-bottom:10px}
.content{padding:40px}
.section{margin-bottom:40px}
.section-title{font-size:1.8em;color:#667eea;margin-bottom:20px;padding-bottom:10px;border-bottom:3px solid #667eea}
.info-card{background:#f8f9fa;padding:20px;border-radius:8px;margin-bottom:20px}
.info-item{display:flex;justify-content:space-between;padding:10px 0;border-bottom:1px solid #dee2e6}
.info-label{font-weight:600;color:#495057}
table{width:100%;border-collapse:collapse;margin:10px 0 20px}
th{background:#667eea;color:#fff;padding:12px;text-align:left}
td{padding:10px 12px;border-bottom:1px solid #dee2e6}
h3{color:#495057;margin:20px 0 10px}
.stats-grid{display:grid;grid-template-columns:repeat(auto-fit,minmax(220px,1fr));gap:20px;margin-bottom:20px}
.stat-card{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:20px;border-radius:8px;text-align:center}
.stat-card h3{color:#fff;margin:0 0 10px}
.stat-value{font-size:2em;font-weight:bold}
.ranking-card{background:#fff;border-left:4px solid #667eea;padding:15px 20px;margin-bottom:15px;box-shadow:0 2px 8px rgba(0,0,0,.08)}
.medal{font-size:1.5em;margin-right:5px}
.chart-container{margin:30px 0;text-align:center}
.chart-container img{max-width:100%;border-radius:8px;box-shadow:0 4px 12px rgba(0,0,0,.1)}
.chart-title{font-size:1.2em;font-weight:600;color:#495057;margin-bottom:15px}
.notice{color:#6c757d}
.ai-report{background:#f8f9fa;padding:30px;border-radius:8px;border-left:4px solid #764ba2}
.ai-report p{margin-bottom:15px;text-align:justify}
.footer{background:#f8f9fa;padding:20px;text-align:center;color:#6c757d;border-top:1px solid #dee2e6}
@media print{body{background:#fff}.container{box-shadow:none}}
`
