package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// normalizeText collapses every whitespace run into one space and composes
// the result to NFC so truncation counts the same characters a reader sees.
func normalizeText(str string) string {
	return norm.NFC.String(strings.Join(strings.Fields(str), " "))
}

// truncate cuts s to at most max characters.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}

// spacedText returns the text of the selection with text nodes joined by a
// space, so <b>Python</b><i>Dev</i> reads "Python Dev" and not "PythonDev".
func spacedText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return normalizeText(strings.Join(parts, " "))
}

// textWithoutLinks is spacedText of a copy of s with every nested anchor
// removed. The live document is left untouched.
func textWithoutLinks(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	clone := s.Clone()
	clone.Find("a").Remove()
	return spacedText(clone)
}
