package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScores() []ProviderScore {
	return []ProviderScore{
		{Provider: "tavily", FinalScore: 0.8},
		{Provider: "exa", FinalScore: 0.9},
		{Provider: "brave", FinalScore: 0.5},
	}
}

func TestOptimizeSelection_WithinBudget(t *testing.T) {
	o := NewCostOptimizer(testLogger())

	costs := map[string]float64{"tavily": 0.01, "exa": 0.02, "brave": 0.002}
	selected := o.OptimizeSelection(testScores(), costs, 0.05)

	require.NotEmpty(t, selected)
	assert.LessOrEqual(t, len(selected), maxOptimizedProviders)
	// brave has the best score/cost ratio (0.5/0.002 = 250)
	assert.Equal(t, "brave", selected[0])
}

func TestOptimizeSelection_ZeroBudgetStillSelectsOne(t *testing.T) {
	o := NewCostOptimizer(testLogger())

	costs := map[string]float64{"tavily": 0.01, "exa": 0.02, "brave": 0.002}
	selected := o.OptimizeSelection(testScores(), costs, 0)

	require.Len(t, selected, 1)
	assert.Equal(t, "brave", selected[0], "best value-ratio provider wins on an infeasible budget")
}

func TestOptimizeSelection_SkipsOverBudgetTakesCheaper(t *testing.T) {
	o := NewCostOptimizer(testLogger())

	scores := []ProviderScore{
		{Provider: "exa", FinalScore: 0.9},
		{Provider: "brave", FinalScore: 0.2},
	}
	costs := map[string]float64{"exa": 0.05, "brave": 0.001}

	// exa is unaffordable; brave fits
	selected := o.OptimizeSelection(scores, costs, 0.002)
	require.Len(t, selected, 1)
	assert.Equal(t, "brave", selected[0])
}

func TestOptimizeSelection_CapsAtTwo(t *testing.T) {
	o := NewCostOptimizer(testLogger())

	costs := map[string]float64{"tavily": 0.001, "exa": 0.001, "brave": 0.001}
	selected := o.OptimizeSelection(testScores(), costs, 1.0)

	assert.Len(t, selected, maxOptimizedProviders)
}

func TestOptimizeSelection_EmptyScores(t *testing.T) {
	o := NewCostOptimizer(testLogger())
	assert.Nil(t, o.OptimizeSelection(nil, nil, 1.0))
}

func TestOptimizeSelection_FreeProvidersPreferred(t *testing.T) {
	o := NewCostOptimizer(testLogger())

	scores := []ProviderScore{
		{Provider: "paid", FinalScore: 0.9},
		{Provider: "free", FinalScore: 0.6},
	}
	costs := map[string]float64{"paid": 0.01, "free": 0}

	selected := o.OptimizeSelection(scores, costs, 0.05)
	require.NotEmpty(t, selected)
	assert.Equal(t, "free", selected[0])
}
