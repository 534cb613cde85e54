package searchtypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestContextRadius(t *testing.T) {
	tests := []struct {
		name          string
		query         SearchQuery
		before, after int
	}{
		{"shared radius", SearchQuery{ContextLines: 2}, 2, 2},
		{"explicit before overrides", SearchQuery{ContextLines: 2, BeforeContext: intPtr(5)}, 5, 2},
		{"explicit zero overrides", SearchQuery{ContextLines: 3, AfterContext: intPtr(0)}, 3, 0},
		{"negative clamps", SearchQuery{ContextLines: -1}, 0, 0},
		{"none", SearchQuery{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := tt.query.ContextRadius()
			assert.Equal(t, tt.before, before)
			assert.Equal(t, tt.after, after)
		})
	}
}

func TestAddWarningDeduplicates(t *testing.T) {
	var r SearchResult
	r.AddWarning("using grep fallback")
	r.AddWarning("using grep fallback")
	r.AddWarning("results capped")
	assert.Equal(t, []string{"using grep fallback", "results capped"}, r.Warnings)
}
