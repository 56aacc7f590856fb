package skills

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"github.com/rahul/seif/internal/browser"
)

const maxArticleChars = 50000

// ReadArticleSkill extracts the readable main content of the current page.
type ReadArticleSkill struct{ ws *Workspace }

func (s *ReadArticleSkill) Verb() string { return "READ_ARTICLE" }
func (s *ReadArticleSkill) Description() string {
	return "Extract the main article text of the current page, optionally saving it to a .txt file."
}
func (s *ReadArticleSkill) Usage() string { return `READ_ARTICLE ["filename"]` }

func (s *ReadArticleSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if drv == nil {
		return "", fmt.Errorf("browser not initialized")
	}
	html, err := drv.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	current, err := drv.URL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page url: %w", err)
	}
	pageURL, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %v", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %v", err)
	}

	// Sanitize output (remove any remaining HTML tags or scripts)
	p := bluemonday.StrictPolicy()
	content := strings.TrimSpace(p.Sanitize(article.TextContent))
	if content == "" {
		return "", fmt.Errorf("no readable content on %s", current)
	}
	if len(content) > maxArticleChars {
		content = truncate(content, maxArticleChars) + "\n... (content truncated) ..."
	}

	output := fmt.Sprintf("TITLE: %s\n", article.Title)
	if article.Excerpt != "" {
		output += fmt.Sprintf("EXCERPT: %s\n", article.Excerpt)
	}
	output += "\n-- CONTENT --\n" + content

	if len(args) > 0 {
		name, err := s.ws.write(args[0], ".txt", []byte(output))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Article %q saved to %s", article.Title, name), nil
	}
	return output, nil
}
