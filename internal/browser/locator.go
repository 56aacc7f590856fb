package browser

import (
	"fmt"
	"strings"
)

// Locator names one element lookup strategy.
type Locator int

const (
	ByCSS Locator = iota
	ByID
	ByName
	ByClass
	ByPlaceholder
	ByLabel
	ByText
)

func (l Locator) String() string {
	switch l {
	case ByCSS:
		return "css"
	case ByID:
		return "id"
	case ByName:
		return "name"
	case ByClass:
		return "class"
	case ByPlaceholder:
		return "placeholder"
	case ByLabel:
		return "aria-label"
	case ByText:
		return "text"
	default:
		return fmt.Sprintf("locator(%d)", int(l))
	}
}

// XPathFor builds the XPath expression for every locator except ByCSS.
func XPathFor(by Locator, query string) (string, bool) {
	lit := xpathLiteral(query)
	switch by {
	case ByID:
		return fmt.Sprintf("//*[@id=%s]", lit), true
	case ByName:
		return fmt.Sprintf("//*[@name=%s]", lit), true
	case ByClass:
		return fmt.Sprintf("//*[contains(concat(' ', normalize-space(@class), ' '), concat(' ', %s, ' '))]", lit), true
	case ByPlaceholder:
		return fmt.Sprintf("//*[contains(@placeholder, %s)]", lit), true
	case ByLabel:
		return fmt.Sprintf("//*[contains(@aria-label, %s)]", lit), true
	case ByText:
		return fmt.Sprintf("//*[contains(text(), %s)]", lit), true
	default:
		return "", false
	}
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}
