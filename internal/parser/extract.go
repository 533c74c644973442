package parser

import (
	"fmt"
	"strconv"
	"strings"

	"catalog/crawler/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is an anchor found by index-link extraction.
type Link struct {
	Href    string
	Caption string
}

// Parse loads an HTML document.
func Parse(document string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// anchor is what every mode reads off a matched element before applying its
// own caption rules.
type anchor struct {
	href  string
	texts []string
}

// walk visits the anchors of sel in document order. Elements without href
// are reported and skipped.
func walk(doc *goquery.Document, sel *Selector, fn func(a anchor), diags *Diagnostics) {
	doc.FindMatcher(sel.container).Each(func(_ int, container *goquery.Selection) {
		container.FindMatcher(sel.anchor).Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				*diags = append(*diags, Diagnostic{
					Err:    ErrMissingAttributeOrText,
					Detail: "element without href",
				})
				return
			}
			fn(anchor{href: href, texts: textNodes(s)})
		})
	})
}

// caption applies the shared caption policy: no text skips the element,
// several text nodes keep the first one.
func (a anchor) caption(diags *Diagnostics) (string, bool) {
	switch len(a.texts) {
	case 0:
		*diags = append(*diags, Diagnostic{
			Href:   a.href,
			Err:    ErrMissingAttributeOrText,
			Detail: "element without text",
		})
		return "", false
	case 1:
		return a.texts[0], true
	default:
		*diags = append(*diags, Diagnostic{
			Href:   a.href,
			Texts:  a.texts,
			Err:    ErrAmbiguousCaption,
			Detail: "element has multiple texts, using the first",
		})
		return a.texts[0], true
	}
}

// IndexLinks extracts href/caption pairs, used for month and day discovery.
func IndexLinks(doc *goquery.Document, sel *Selector) ([]Link, Diagnostics) {
	var (
		links []Link
		diags Diagnostics
	)

	walk(doc, sel, func(a anchor) {
		caption, ok := a.caption(&diags)
		if !ok {
			return
		}
		links = append(links, Link{Href: a.href, Caption: caption})
	}, &diags)

	return links, diags
}

// Pages extracts pagination entries. Anchors whose caption is not a positive
// integer are other links sharing the markup and are dropped silently.
func Pages(doc *goquery.Document, sel *Selector, urlRoot string) ([]domain.ListingPage, Diagnostics) {
	var (
		pages []domain.ListingPage
		diags Diagnostics
	)

	walk(doc, sel, func(a anchor) {
		caption, ok := a.caption(&diags)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(caption))
		if err != nil || n <= 0 {
			return
		}
		pages = append(pages, domain.ListingPage{
			PageNumber: n,
			URL:        domain.JoinURL(urlRoot, a.href),
		})
	}, &diags)

	return pages, diags
}

// Descriptions extracts product links with their trimmed captions.
func Descriptions(doc *goquery.Document, sel *Selector) ([]domain.ProductDescription, Diagnostics) {
	var (
		products []domain.ProductDescription
		diags    Diagnostics
	)

	walk(doc, sel, func(a anchor) {
		caption, ok := a.caption(&diags)
		if !ok {
			return
		}
		products = append(products, domain.ProductDescription{
			Description: strings.TrimSpace(caption),
			URL:         a.href,
		})
	}, &diags)

	return products, diags
}

// textNodes collects the non-blank descendant text nodes of s, in order.
func textNodes(s *goquery.Selection) []string {
	var texts []string

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				if strings.TrimSpace(c.Data) != "" {
					texts = append(texts, c.Data)
				}
			case html.ElementNode:
				visit(c)
			}
		}
	}

	for _, n := range s.Nodes {
		visit(n)
	}
	return texts
}
