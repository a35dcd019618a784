package scoring

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// maxOptimizedProviders caps how many providers a budget-constrained
// selection may return.
const maxOptimizedProviders = 2

// CostOptimizer greedily selects providers by value ratio (score per dollar)
// within a budget.
type CostOptimizer struct {
	logger *logrus.Logger
}

// NewCostOptimizer creates an optimizer.
func NewCostOptimizer(logger *logrus.Logger) *CostOptimizer {
	return &CostOptimizer{logger: logger}
}

type valuedProvider struct {
	score ProviderScore
	cost  float64
	ratio float64
}

// OptimizeSelection picks providers by descending value ratio while the
// running cost stays within budget, capped at two providers. At least one
// provider (the best ratio) is always returned, even over budget, so routing
// never stalls on an infeasible budget.
func (o *CostOptimizer) OptimizeSelection(scores []ProviderScore, costs map[string]float64, budget float64) []string {
	if len(scores) == 0 {
		return nil
	}

	valued := make([]valuedProvider, 0, len(scores))
	for _, s := range scores {
		cost := costs[s.Provider]
		ratio := s.FinalScore
		if cost > 0 {
			ratio = s.FinalScore / cost
		} else {
			// free providers dominate any paid one at equal score
			ratio = s.FinalScore * 1e6
		}
		valued = append(valued, valuedProvider{score: s, cost: cost, ratio: ratio})
	}

	sort.SliceStable(valued, func(i, j int) bool {
		return valued[i].ratio > valued[j].ratio
	})

	var selected []string
	spent := 0.0
	for _, v := range valued {
		if len(selected) >= maxOptimizedProviders {
			break
		}
		if spent+v.cost > budget {
			continue
		}
		selected = append(selected, v.score.Provider)
		spent += v.cost
	}

	if len(selected) == 0 {
		// infeasible budget: take the best-ratio provider anyway so routing
		// never stalls
		best := valued[0]
		selected = append(selected, best.score.Provider)
		o.logger.WithFields(logrus.Fields{
			"provider": best.score.Provider,
			"cost":     best.cost,
			"budget":   budget,
		}).Debug("Budget infeasible, selecting best value provider anyway")
	}

	return selected
}
