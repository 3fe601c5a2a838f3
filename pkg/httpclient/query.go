package httpclient

import (
	"net/url"
	"strings"
)

// Param is a single query-string pair.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered set of query parameters. Keys are serialized in the
// order they were added; duplicate keys are kept.
type Params []Param

// NewParams builds Params from alternating key/value strings. A dangling key
// without a value is dropped.
func NewParams(kv ...string) Params {
	p := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		p = p.Add(kv[i], kv[i+1])
	}
	return p
}

// Add appends a pair and returns the extended set.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Len reports the number of pairs.
func (p Params) Len() int { return len(p) }

// Pairs returns the "k=v" strings in order, encoded unless legacy is set.
func (p Params) Pairs(legacy bool) []string {
	out := make([]string, 0, len(p))
	for _, kv := range p {
		if legacy {
			out = append(out, kv.Key+"="+kv.Value)
			continue
		}
		out = append(out, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	return out
}

// BuildQuery serializes params as "?k=v&k=v". An empty set yields "".
//
// In legacy mode keys and values are concatenated verbatim, reproducing the
// historical widget behaviour; callers must not rely on it for values that
// may contain reserved characters.
func BuildQuery(p Params, legacy bool) string {
	if len(p) == 0 {
		return ""
	}
	return "?" + strings.Join(p.Pairs(legacy), "&")
}
