package links

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ElementFinder looks up an element by id inside the subtree of the element
// whose id is rootID. Elements outside that subtree must never be returned.
type ElementFinder interface {
	FindElementByID(rootID string, id string) bool
}

// FragmentTarget is where an in-page link should scroll to.
type FragmentTarget struct {
	// Top means scroll the content container to the top.
	Top bool
	// ID is the id of the matched element when Top is false.
	ID string
}

// ParseFragmentID returns everything after the first '#', or "" if there is none.
func ParseFragmentID(href string) string {
	i := strings.IndexByte(href, '#')
	if i < 0 {
		return ""
	}
	return href[i+1:]
}

// ResolveFragmentTarget finds the element an in-page href points at. An href
// without a fragment resolves to the top of the content. The raw fragment id
// is tried before its percent-decoded form.
func ResolveFragmentTarget(finder ElementFinder, contentRootID string, href string) (FragmentTarget, bool) {
	rawID := ParseFragmentID(href)
	if rawID == "" {
		return FragmentTarget{Top: true}, true
	}

	candidates := []string{rawID}
	if decodedID := decode(rawID); decodedID != rawID {
		candidates = append(candidates, decodedID)
	}

	for _, candidate := range candidates {
		if finder.FindElementByID(contentRootID, candidate) {
			return FragmentTarget{ID: candidate}, true
		}
	}
	return FragmentTarget{}, false
}

// HTMLPage is an ElementFinder over a rendered HTML page.
type HTMLPage struct {
	doc *goquery.Document
}

var _ ElementFinder = (*HTMLPage)(nil)

// NewHTMLPage parses page for id lookups.
func NewHTMLPage(page string) (*HTMLPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &HTMLPage{doc: doc}, nil
}

// FindElementByID compares id attributes directly rather than building a CSS
// selector, so ids containing selector metacharacters still match.
func (p *HTMLPage) FindElementByID(rootID string, id string) bool {
	if id == "" {
		return false
	}
	root := findByID(p.doc.Selection, rootID)
	if root == nil {
		return false
	}
	return findByID(root, id) != nil
}

func findByID(scope *goquery.Selection, id string) *goquery.Selection {
	var found *goquery.Selection
	scope.Find("[id]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if value, _ := sel.Attr("id"); value == id {
			found = sel
			return false
		}
		return true
	})
	return found
}
