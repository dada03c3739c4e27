package bubbletea

import (
	"strings"
	"unicode"

	rw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// wrapText word-wraps plain text to width, prefixing continuation lines
// with indent. Display width is measured per grapheme cluster so wide
// runes and emoji wrap where they actually break on screen.
func wrapText(text string, width int, indent string) string {
	if width <= 0 {
		return text
	}

	var (
		out  strings.Builder
		line strings.Builder
		word strings.Builder
	)
	lineWidth := 0

	flushLine := func() {
		if out.Len() > 0 {
			out.WriteByte('\n')
			out.WriteString(indent)
		}
		out.WriteString(strings.TrimRight(line.String(), " "))
		line.Reset()
		lineWidth = 0
	}
	flushWord := func() {
		w := uniseg.StringWidth(word.String())
		if lineWidth > 0 && lineWidth+w > width {
			flushLine()
		}
		line.WriteString(word.String())
		lineWidth += w
		word.Reset()
	}

	for _, r := range text {
		switch {
		case r == '\n':
			flushWord()
			flushLine()
		case unicode.IsSpace(r):
			flushWord()
			if lineWidth < width {
				line.WriteByte(' ')
				lineWidth++
			}
		default:
			// A single over-long word breaks at the width boundary.
			if uniseg.StringWidth(word.String())+rw.RuneWidth(r) > width {
				flushWord()
			}
			word.WriteRune(r)
		}
	}
	flushWord()
	flushLine()

	return out.String()
}
