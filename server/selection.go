package server

import (
	"net/http"
	"net/url"
	"strings"
)

// Selection is the sidebar state carried in the query string.
type Selection struct {
	Cities  []string
	ShowRaw bool
}

// ParseSelection reads repeated city parameters from the request. Before the
// form has ever been applied every city is selected; once applied, no city
// means an empty selection.
func ParseSelection(r *http.Request, all []string) Selection {
	q := r.URL.Query()
	sel := Selection{ShowRaw: q.Get("raw") == "1"}

	requested := q["city"]
	if len(requested) == 0 && !q.Has("apply") {
		sel.Cities = append([]string{}, all...)
		return sel
	}

	seen := make(map[string]struct{}, len(requested))
	sel.Cities = make([]string, 0, len(requested))
	for _, c := range requested {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		sel.Cities = append(sel.Cities, c)
	}
	return sel
}

// Query encodes the selection so links keep it across pages.
func (s Selection) Query() url.Values {
	q := url.Values{}
	q.Set("apply", "1")
	for _, c := range s.Cities {
		q.Add("city", c)
	}
	if s.ShowRaw {
		q.Set("raw", "1")
	}
	return q
}

// Has reports whether city is part of the selection.
func (s Selection) Has(city string) bool {
	for _, c := range s.Cities {
		if c == city {
			return true
		}
	}
	return false
}
