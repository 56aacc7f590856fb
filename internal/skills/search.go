package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/tools/duckduckgo"

	"github.com/rahul/seif/internal/browser"
)

// Searcher is satisfied by langchaingo tools.
type Searcher interface {
	Call(ctx context.Context, input string) (string, error)
}

// SearchSkill queries DuckDuckGo without touching the browser.
type SearchSkill struct {
	client Searcher
}

func NewSearchSkill() (*SearchSkill, error) {
	ddg, err := duckduckgo.New(10, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &SearchSkill{client: ddg}, nil
}

// NewSearchSkillWith uses a custom search backend.
func NewSearchSkillWith(client Searcher) *SearchSkill {
	return &SearchSkill{client: client}
}

func (s *SearchSkill) Verb() string        { return "SEARCH" }
func (s *SearchSkill) Description() string { return "Search the web using DuckDuckGo for real-time information." }
func (s *SearchSkill) Usage() string       { return `SEARCH "query"` }

func (s *SearchSkill) Execute(ctx context.Context, drv browser.Driver, args []string) (string, error) {
	if err := need(args, 1, s.Usage()); err != nil {
		return "", err
	}
	query := strings.Join(args, " ")
	res, err := s.client.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}
