package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCategory(t *testing.T) {
	tests := []struct {
		name      string
		cat       Category
		product   bool
		navigable bool
		str       string
	}{
		{"ignore", CategoryIgnore, false, false, "ignore"},
		{"product", CategoryProduct, true, false, "product"},
		{"navigable", CategoryNavigable, false, true, "navigable"},
		{"both", CategoryProduct | CategoryNavigable, true, true, "product+navigable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.product, tt.cat.IsProduct())
			assert.Equal(t, tt.navigable, tt.cat.IsNavigable())
			assert.Equal(t, tt.str, tt.cat.String())
		})
	}
}

func TestRunSummary_YAMLOmitsEmptySeedLists(t *testing.T) {
	summary := RunSummary{
		RunID:     "run-1",
		Status:    RunStatusCompleted,
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Sites: []SiteSummary{
			{SessionID: "s1", SeedURL: "https://shop.test/", Domain: "shop.test", ProductsFound: 3},
		},
		ProductsFound: 3,
	}

	data, err := yaml.Marshal(summary)
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, "run_id: run-1")
	assert.Contains(t, raw, "status: completed")
	assert.Contains(t, raw, "domain: shop.test")
	assert.NotContains(t, raw, "dropped_seeds")
	assert.NotContains(t, raw, "rejected_seeds")
	assert.NotContains(t, raw, "children_dropped")
}
