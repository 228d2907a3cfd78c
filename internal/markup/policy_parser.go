package markup

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Declaration is the normalized attribute set extracted from a post's policy
// marker. Zero values mean "absent"; nothing here is validated against
// stored state.
type Declaration struct {
	Group      string
	RenewDays  int // 0 when absent or non-positive in the markup
	RenewStart *time.Time
	Version    string
	Reminder   string
}

const renewStartLayout = "2006-01-02"

// FindDeclaration scans cooked HTML for the first element carrying the
// "policy" class and extracts its data attributes. Returns nil when no
// marker exists; markers after the first are ignored. Malformed values
// degrade to absent, never to an error.
func FindDeclaration(cooked string) *Declaration {
	doc, err := html.Parse(strings.NewReader(cooked))
	if err != nil {
		return nil
	}
	node := findPolicyNode(doc)
	if node == nil {
		return nil
	}

	d := &Declaration{}
	for _, a := range node.Attr {
		switch a.Key {
		case "data-group":
			d.Group = strings.TrimSpace(a.Val)
		case "data-renew":
			if n, err := strconv.Atoi(strings.TrimSpace(a.Val)); err == nil && n > 0 {
				d.RenewDays = n
			}
		case "data-renew-start":
			if t, err := time.Parse(renewStartLayout, strings.TrimSpace(a.Val)); err == nil {
				t = t.UTC()
				d.RenewStart = &t
			}
		case "data-version":
			d.Version = strings.TrimSpace(a.Val)
		case "data-reminder":
			d.Reminder = a.Val
		}
	}
	return d
}

func findPolicyNode(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, "policy") {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findPolicyNode(c); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}
