package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rahul/seif/internal/browser"
)

const listedItems = 5

func pageDocument(ctx context.Context, drv browser.Driver) (*goquery.Document, error) {
	if drv == nil {
		return nil, fmt.Errorf("browser not initialized")
	}
	html, err := drv.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// ExtractTextSkill collects the text of every element matching a CSS selector.
type ExtractTextSkill struct{ ws *Workspace }

func (s *ExtractTextSkill) Verb() string { return "EXTRACT_TEXT" }
func (s *ExtractTextSkill) Description() string {
	return "Extract the text of elements matching a CSS selector, optionally saving it to a .txt file."
}
func (s *ExtractTextSkill) Usage() string { return `EXTRACT_TEXT "css selector" ["filename"]` }

func (s *ExtractTextSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 1, s.Usage()); err != nil {
		return "", err
	}
	doc, err := pageDocument(ctx, drv)
	if err != nil {
		return "", err
	}

	selector := args[0]
	var texts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if t := strings.Join(strings.Fields(sel.Text()), " "); t != "" {
			texts = append(texts, t)
		}
	})
	if len(texts) == 0 {
		return "", fmt.Errorf("no elements with text found matching selector: %s", selector)
	}

	if len(args) > 1 {
		var b strings.Builder
		for i, t := range texts {
			fmt.Fprintf(&b, "Item %d:\n%s\n\n", i+1, t)
		}
		name, err := s.ws.write(args[1], ".txt", []byte(b.String()))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Extracted %d text items and saved to %s", len(texts), name), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted %d text items", len(texts))
	for i, t := range texts {
		if i == listedItems {
			fmt.Fprintf(&b, "\n...and %d more items", len(texts)-listedItems)
			break
		}
		fmt.Fprintf(&b, "\nItem %d: %s", i+1, preview(t, 100))
	}
	return b.String(), nil
}

// Link is one extracted anchor.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// ExtractLinksSkill collects href targets of elements matching a CSS selector.
// Relative links are resolved against the current page URL.
type ExtractLinksSkill struct{ ws *Workspace }

func (s *ExtractLinksSkill) Verb() string { return "EXTRACT_LINKS" }
func (s *ExtractLinksSkill) Description() string {
	return "Extract links from elements matching a CSS selector, optionally saving them to a .json file."
}
func (s *ExtractLinksSkill) Usage() string { return `EXTRACT_LINKS "css selector" ["filename"]` }

func (s *ExtractLinksSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 1, s.Usage()); err != nil {
		return "", err
	}
	doc, err := pageDocument(ctx, drv)
	if err != nil {
		return "", err
	}
	var base *url.URL
	if current, err := drv.URL(ctx); err == nil {
		base, _ = url.Parse(current)
	}

	var links []Link
	doc.Find(args[0]).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		links = append(links, Link{URL: href, Text: strings.Join(strings.Fields(sel.Text()), " ")})
	})
	if len(links) == 0 {
		return "", fmt.Errorf("no links found matching selector: %s", args[0])
	}

	if len(args) > 1 {
		data, err := json.MarshalIndent(links, "", "  ")
		if err != nil {
			return "", err
		}
		name, err := s.ws.write(args[1], ".json", data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Extracted %d links and saved to %s", len(links), name), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted %d links", len(links))
	for i, l := range links {
		if i == listedItems {
			fmt.Fprintf(&b, "\n...and %d more links", len(links)-listedItems)
			break
		}
		fmt.Fprintf(&b, "\nLink %d: %s - %s", i+1, l.Text, l.URL)
	}
	return b.String(), nil
}
