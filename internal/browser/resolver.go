package browser

import (
	"context"
	"strings"
)

// DefaultStrategies is the lookup order, most precise first.
var DefaultStrategies = []Locator{ByCSS, ByID, ByName, ByClass, ByPlaceholder, ByLabel, ByText}

// Resolution is the outcome of resolving one query.
type Resolution struct {
	Query    string
	By       Locator
	Elements []Element
}

func (r Resolution) Empty() bool { return len(r.Elements) == 0 }

// Resolver tries each strategy in order and stops at the first one that
// returns at least one element. A failing strategy counts as "no match".
type Resolver struct {
	Finder     Finder
	Strategies []Locator
}

func NewResolver(f Finder) *Resolver {
	return &Resolver{Finder: f, Strategies: DefaultStrategies}
}

func (r *Resolver) Resolve(ctx context.Context, query string) Resolution {
	res := Resolution{Query: query}
	if strings.TrimSpace(query) == "" {
		return res
	}
	for _, by := range r.Strategies {
		if ctx.Err() != nil {
			return res
		}
		els, err := r.Finder.FindElements(ctx, by, query)
		if err != nil || len(els) == 0 {
			continue
		}
		res.By = by
		res.Elements = els
		return res
	}
	return res
}

// FirstInteractable returns the first element that is both visible and
// enabled, or nil. Elements whose state cannot be read are skipped.
func FirstInteractable(ctx context.Context, els []Element) Element {
	for _, el := range els {
		visible, err := el.Visible(ctx)
		if err != nil || !visible {
			continue
		}
		enabled, err := el.Enabled(ctx)
		if err != nil || !enabled {
			continue
		}
		return el
	}
	return nil
}
