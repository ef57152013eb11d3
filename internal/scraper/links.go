package scraper

import (
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindLinks yields the href of every anchor whose href matches pattern,
// in document order. The pattern is an unanchored regular expression; an
// empty pattern matches every anchor that has an href at all.
func FindLinks(htmlText, pattern string) (iter.Seq[string], error) {
	var re *regexp.Regexp
	if pattern != "" {
		var err error
		if re, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("invalid link pattern %q: %w", pattern, err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	anchors := doc.Find("a[href]")

	return func(yield func(string) bool) {
		for _, n := range anchors.Nodes {
			href := ""
			for _, a := range n.Attr {
				if a.Key == "href" {
					href = a.Val
					break
				}
			}
			if re != nil && !re.MatchString(href) {
				continue
			}
			if !yield(href) {
				return
			}
		}
	}, nil
}
