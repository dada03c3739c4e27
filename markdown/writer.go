package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// writer walks a parsed document and emits styled blocks. Blocks are
// separated by a single blank line; the quote depth adds a bar prefix.
type writer struct {
	r      *Renderer
	source []byte
	width  int
	buf    bytes.Buffer
}

func (w *writer) output() string {
	return strings.TrimRight(w.buf.String(), "\n")
}

func (w *writer) blocks(parent ast.Node, quoteDepth int) {
	for node := parent.FirstChild(); node != nil; node = node.NextSibling() {
		w.block(node, quoteDepth)
		if node.NextSibling() != nil {
			w.line("", quoteDepth)
		}
	}
}

func (w *writer) block(node ast.Node, quoteDepth int) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		w.wrapped(w.inline(node), quoteDepth)

	case *ast.Heading:
		w.wrapped(w.r.heading.Render(w.inline(n)), quoteDepth)

	case *ast.FencedCodeBlock:
		if lang := string(n.Language(w.source)); lang != "" {
			w.line(w.r.muted.Render(lang), quoteDepth)
		}
		w.codeLines(n.Lines(), quoteDepth)

	case *ast.CodeBlock:
		w.codeLines(n.Lines(), quoteDepth)

	case *ast.List:
		w.list(n, quoteDepth, 0)

	case *ast.Blockquote:
		w.blocks(n, quoteDepth+1)

	case *ast.ThematicBreak:
		w.line(w.r.muted.Render(strings.Repeat("─", min(w.width, 24))), quoteDepth)

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.line(strings.TrimRight(string(seg.Value(w.source)), "\n"), quoteDepth)
		}

	default:
		w.blocks(node, quoteDepth)
	}
}

// codeLines emits a code block verbatim on the code background. No reflow:
// generated code must survive copy-paste.
func (w *writer) codeLines(lines *text.Segments, quoteDepth int) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content := strings.TrimRight(string(seg.Value(w.source)), "\n")
		w.line(w.r.code.Render(" "+content+" "), quoteDepth)
	}
}

func (w *writer) list(node *ast.List, quoteDepth, depth int) {
	num := node.Start
	for item := node.FirstChild(); item != nil; item = item.NextSibling() {
		li, ok := item.(*ast.ListItem)
		if !ok {
			continue
		}
		marker := "• "
		if node.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		prefix := strings.Repeat("  ", depth) + marker

		var acc strings.Builder
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			switch cn := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				if acc.Len() > 0 {
					acc.WriteString(" ")
				}
				acc.WriteString(w.inline(cn))
			case *ast.List:
				w.item(prefix, acc.String(), quoteDepth)
				acc.Reset()
				prefix = strings.Repeat(" ", len(prefix))
				w.list(cn, quoteDepth, depth+1)
			default:
				w.item(prefix, acc.String(), quoteDepth)
				acc.Reset()
				prefix = strings.Repeat(" ", len(prefix))
				w.block(c, quoteDepth)
			}
		}
		if acc.Len() > 0 {
			w.item(prefix, acc.String(), quoteDepth)
		}
	}
}

// item writes one list entry, indenting continuation lines under the text.
func (w *writer) item(prefix, content string, quoteDepth int) {
	avail := w.width - len(prefix) - quoteDepth*2
	if avail < 8 {
		avail = 8
	}
	hang := strings.Repeat(" ", len(prefix))
	for i, ln := range strings.Split(lipgloss.NewStyle().Width(avail).Render(content), "\n") {
		if i == 0 {
			w.line(prefix+ln, quoteDepth)
		} else {
			w.line(hang+ln, quoteDepth)
		}
	}
}

// wrapped word-wraps already-styled inline text and writes it line by line.
func (w *writer) wrapped(styled string, quoteDepth int) {
	avail := w.width - quoteDepth*2
	if avail < 8 {
		avail = 8
	}
	for _, ln := range strings.Split(lipgloss.NewStyle().Width(avail).Render(styled), "\n") {
		w.line(ln, quoteDepth)
	}
}

// line writes one output line, prefixing a quote bar per nesting level.
func (w *writer) line(content string, quoteDepth int) {
	if quoteDepth > 0 {
		w.buf.WriteString(strings.Repeat(w.r.quoteBar.Render("┃")+" ", quoteDepth))
	}
	w.buf.WriteString(content)
	w.buf.WriteByte('\n')
}

// inline collects the styled inline content of a block node.
func (w *writer) inline(node ast.Node) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.inlineNode(c, &buf)
	}
	return buf.String()
}

func (w *writer) inlineNode(node ast.Node, buf *bytes.Buffer) {
	switch n := node.(type) {
	case *ast.Text:
		buf.Write(n.Segment.Value(w.source))
		if n.SoftLineBreak() {
			buf.WriteByte(' ')
		}
		if n.HardLineBreak() {
			buf.WriteByte('\n')
		}

	case *ast.String:
		buf.Write(n.Value)

	case *ast.Emphasis:
		inner := w.collect(n)
		if n.Level == 1 {
			buf.WriteString(w.r.italic.Render(inner))
		} else {
			buf.WriteString(w.r.bold.Render(inner))
		}

	case *ast.CodeSpan:
		buf.WriteString(w.r.code.Render(w.collect(n)))

	case *ast.Link:
		buf.WriteString(w.r.underline.Render(w.collect(n)))
		buf.WriteString(w.r.muted.Render(" (" + string(n.Destination) + ")"))

	case *ast.AutoLink:
		buf.WriteString(w.r.underline.Render(string(n.URL(w.source))))

	case *ast.Image:
		buf.WriteString(w.r.underline.Render(w.collect(n)))
		buf.WriteString(w.r.muted.Render(" (" + string(n.Destination) + ")"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			buf.Write(seg.Value(w.source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.inlineNode(c, buf)
		}
	}
}

func (w *writer) collect(node ast.Node) string {
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		w.inlineNode(c, &buf)
	}
	return buf.String()
}
