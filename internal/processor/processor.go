// Package processor pulls video metadata out of fetched watch pages.
package processor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// ErrNoJSON is returned when a page does not embed the requested object.
var ErrNoJSON = errors.New("embedded JSON object not found")

type PageMetadata struct {
	Title        string
	Channel      string
	CanonicalURL string
}

type ContentProcessor struct {
	// TitleSuffixes are stripped from <title> text, e.g. " - YouTube".
	TitleSuffixes []string
}

func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{TitleSuffixes: []string{" - YouTube"}}
}

// Metadata reads the page title and related fields. The title comes from
// og:title, then <title>, then readability's guess.
func (cp *ContentProcessor) Metadata(html, pageURL string) (*PageMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	meta := &PageMetadata{
		Title:        cp.findMetaContent(doc, []string{"og:title", "twitter:title", "title"}),
		Channel:      strings.TrimSpace(doc.Find(`span[itemprop='author'] link[itemprop='name']`).AttrOr("content", "")),
		CanonicalURL: cp.findMetaContent(doc, []string{"og:url"}),
	}
	if meta.CanonicalURL == "" {
		meta.CanonicalURL = strings.TrimSpace(doc.Find("link[rel='canonical']").AttrOr("href", ""))
	}

	if meta.Title == "" {
		meta.Title = cp.trimTitle(doc.Find("title").First().Text())
	}
	if meta.Title == "" {
		meta.Title = cp.readabilityTitle(html, pageURL)
	}
	return meta, nil
}

func (cp *ContentProcessor) trimTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, suffix := range cp.TitleSuffixes {
		title = strings.TrimSuffix(title, suffix)
	}
	return strings.TrimSpace(title)
}

func (cp *ContentProcessor) readabilityTitle(html, pageURL string) string {
	u, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return ""
	}
	return cp.trimTitle(article.Title)
}

func (cp *ContentProcessor) findMetaContent(doc *goquery.Document, properties []string) string {
	for _, prop := range properties {
		if content := doc.Find(fmt.Sprintf("meta[name='%s']", prop)).AttrOr("content", ""); strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		// Open Graph tags use the property attribute
		if content := doc.Find(fmt.Sprintf("meta[property='%s']", prop)).AttrOr("content", ""); strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

// EmbeddedJSON returns the object literal assigned to name inside the page's
// inline scripts, e.g. "var ytInitialPlayerResponse = {...};".
func (cp *ContentProcessor) EmbeddedJSON(html, name string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var found []byte
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = objectAfter(s.Text(), name)
		return found == nil
	})
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoJSON, name)
	}
	return found, nil
}

func objectAfter(script, name string) []byte {
	for rest := script; ; {
		idx := strings.Index(rest, name)
		if idx == -1 {
			return nil
		}
		rest = rest[idx+len(name):]
		tail := strings.TrimLeft(rest, " \t\r\n")
		if !strings.HasPrefix(tail, "=") {
			continue
		}
		tail = strings.TrimLeft(tail[1:], " \t\r\n")
		if obj := balancedObject(tail); obj != "" {
			return []byte(obj)
		}
	}
}

// balancedObject returns the leading {...} of s, honouring string literals.
func balancedObject(s string) string {
	if s == "" || s[0] != '{' {
		return ""
	}
	depth := 0
	inStr, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
