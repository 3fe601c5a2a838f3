package httpclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryEmpty(t *testing.T) {
	assert.Equal(t, "", BuildQuery(nil, false))
	assert.Equal(t, "", BuildQuery(Params{}, true))
}

func TestBuildQueryShape(t *testing.T) {
	sets := []Params{
		NewParams("a", "1"),
		NewParams("viewName", "people", "p_city", "Sion"),
		NewParams("EDSType", "WebRDFFile", "url", "http://x/y.rdf", "context", "http://x/ctx"),
	}
	for _, p := range sets {
		for _, legacy := range []bool{false, true} {
			q := BuildQuery(p, legacy)
			assert.True(t, strings.HasPrefix(q, "?"), q)
			assert.False(t, strings.HasSuffix(q, "&"), q)
			assert.Len(t, strings.Split(q[1:], "&"), p.Len(), q)
		}
	}
}

func TestBuildQueryKeepsInsertionOrder(t *testing.T) {
	p := NewParams("z", "1", "a", "2", "m", "3")
	assert.Equal(t, "?z=1&a=2&m=3", BuildQuery(p, false))
}

func TestBuildQueryEncodesValues(t *testing.T) {
	p := NewParams("query", "SELECT ?s WHERE {?s ?p ?o}", "url", "http://x/a?b=c&d")
	got := BuildQuery(p, false)
	assert.Equal(t, "?query=SELECT+%3Fs+WHERE+%7B%3Fs+%3Fp+%3Fo%7D&url=http%3A%2F%2Fx%2Fa%3Fb%3Dc%26d", got)
}

func TestBuildQueryLegacyConcatenatesVerbatim(t *testing.T) {
	p := NewParams("url", "http://x/a?b=c")
	assert.Equal(t, "?url=http://x/a?b=c", BuildQuery(p, true))
}

func TestNewParamsDropsDanglingKey(t *testing.T) {
	p := NewParams("a", "1", "b")
	assert.Equal(t, 1, p.Len())
}
