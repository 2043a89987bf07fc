// Package markup turns Markdown post bodies into plain text for feeds,
// excerpts and other places where HTML is not wanted.
package markup

import (
	"regexp"
	"strings"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`\b_([^_]+)_\b`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)(\^)?`)
	reImg              = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)(\{[^}]*\})?`)
	reOrderedList      = regexp.MustCompile(`^\d+\.\s+`)
	reHeading          = regexp.MustCompile(`^#{1,6}\s+`)
)

// PlainText strips Markdown block and inline syntax from md. Paragraphs are
// joined with a single space; fenced code blocks are dropped.
func PlainText(md string) string {
	var parts []string
	inCode := false
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode || line == "" || isRule(line) || isTableSeparator(line) {
			continue
		}
		line = stripBlock(line)
		if line = Inline(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// Inline removes emphasis, code spans, links and images from one line,
// keeping link text and image alt text.
func Inline(s string) string {
	s = reImg.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reBoldUnderscore.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reItalicUnderscore.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func stripBlock(line string) string {
	switch {
	case reHeading.MatchString(line):
		return reHeading.ReplaceAllString(line, "")
	case strings.HasPrefix(line, ">"):
		return strings.TrimSpace(strings.TrimLeft(line, "> "))
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "), strings.HasPrefix(line, "+ "):
		return line[2:]
	case reOrderedList.MatchString(line):
		return reOrderedList.ReplaceAllString(line, "")
	case strings.HasPrefix(line, "|"):
		return strings.Join(tableCells(line), " ")
	}
	return line
}

func isRule(line string) bool {
	return line == "---" || line == "***" || line == "___"
}

func tableCells(line string) []string {
	line = strings.Trim(line, "|")
	var cells []string
	for _, c := range strings.Split(line, "|") {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

func isTableSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	cleaned := strings.NewReplacer("|", "", "-", "", ":", "", " ", "").Replace(line)
	return cleaned == ""
}

// Excerpt returns PlainText(md) cut to at most n runes on a word boundary,
// with an ellipsis when anything was cut.
func Excerpt(md string, n int) string {
	text := PlainText(md)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	cut := n
	for cut > 0 && r[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = n
	}
	return strings.TrimRight(string(r[:cut]), " ") + "…"
}
