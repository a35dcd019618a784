package admission

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dailyResetInterval   = 24 * time.Hour
	monthlyResetInterval = 30 * 24 * time.Hour

	// recentCostCapacity bounds the recent-cost ring buffer
	recentCostCapacity = 1000
)

// BudgetConfig holds the monetary caps for one provider, in USD.
type BudgetConfig struct {
	PerQueryCap float64 `yaml:"per_query_cap"`
	DailyCap    float64 `yaml:"daily_cap"`
	MonthlyCap  float64 `yaml:"monthly_cap"`
	Enforce     bool    `yaml:"enforce"`
}

// CostSample is one recorded spend.
type CostSample struct {
	Timestamp time.Time `json:"timestamp"`
	Cost      float64   `json:"cost"`
}

// BudgetUsage is a point-in-time snapshot for the ops surface.
type BudgetUsage struct {
	Provider     string    `json:"provider"`
	DailySpend   float64   `json:"daily_spend"`
	MonthlySpend float64   `json:"monthly_spend"`
	DailyCap     float64   `json:"daily_cap"`
	MonthlyCap   float64   `json:"monthly_cap"`
	LastDaily    time.Time `json:"last_daily_reset"`
	LastMonthly  time.Time `json:"last_monthly_reset"`
}

// BudgetTracker keeps a rolling daily/monthly ledger for one provider. Resets
// are lazy: every read and write first checks whether a day or month boundary
// has elapsed and zeroes the relevant total, so no background sweep is needed.
type BudgetTracker struct {
	mutex    sync.Mutex
	provider string
	config   BudgetConfig
	logger   *logrus.Logger

	dailySpend   float64
	monthlySpend float64
	lastDaily    time.Time
	lastMonthly  time.Time

	recent []CostSample

	now func() time.Time
}

// NewBudgetTracker creates a tracker for the named provider.
func NewBudgetTracker(provider string, config BudgetConfig, logger *logrus.Logger) *BudgetTracker {
	now := time.Now()
	return &BudgetTracker{
		provider:    provider,
		config:      config,
		logger:      logger,
		lastDaily:   now,
		lastMonthly: now,
		now:         time.Now,
	}
}

// CheckBudget reports whether spending estimatedCost now would stay within
// the per-query, daily and monthly caps. Always true when enforcement is off.
func (bt *BudgetTracker) CheckBudget(estimatedCost float64) bool {
	if !bt.config.Enforce {
		return true
	}

	bt.mutex.Lock()
	defer bt.mutex.Unlock()

	bt.maybeReset()

	if bt.config.PerQueryCap > 0 && estimatedCost > bt.config.PerQueryCap {
		bt.logDenied("per-query cap exceeded", estimatedCost)
		return false
	}
	if bt.config.DailyCap > 0 && bt.dailySpend+estimatedCost > bt.config.DailyCap {
		bt.logDenied("daily cap exceeded", estimatedCost)
		return false
	}
	if bt.config.MonthlyCap > 0 && bt.monthlySpend+estimatedCost > bt.config.MonthlyCap {
		bt.logDenied("monthly cap exceeded", estimatedCost)
		return false
	}

	return true
}

// RecordCost adds an actual spend to both running totals and the recent ring.
func (bt *BudgetTracker) RecordCost(actualCost float64) {
	bt.mutex.Lock()
	defer bt.mutex.Unlock()

	bt.maybeReset()

	bt.dailySpend += actualCost
	bt.monthlySpend += actualCost

	bt.recent = append(bt.recent, CostSample{Timestamp: bt.now(), Cost: actualCost})
	if len(bt.recent) > recentCostCapacity {
		bt.recent = bt.recent[len(bt.recent)-recentCostCapacity:]
	}
}

// Usage returns a snapshot of the current ledger.
func (bt *BudgetTracker) Usage() BudgetUsage {
	bt.mutex.Lock()
	defer bt.mutex.Unlock()

	bt.maybeReset()

	return BudgetUsage{
		Provider:     bt.provider,
		DailySpend:   bt.dailySpend,
		MonthlySpend: bt.monthlySpend,
		DailyCap:     bt.config.DailyCap,
		MonthlyCap:   bt.config.MonthlyCap,
		LastDaily:    bt.lastDaily,
		LastMonthly:  bt.lastMonthly,
	}
}

// RecentCosts returns a copy of the recent-cost ring, newest last.
func (bt *BudgetTracker) RecentCosts() []CostSample {
	bt.mutex.Lock()
	defer bt.mutex.Unlock()

	out := make([]CostSample, len(bt.recent))
	copy(out, bt.recent)
	return out
}

// maybeReset applies lazy day/month rollovers. Caller holds the lock.
func (bt *BudgetTracker) maybeReset() {
	now := bt.now()

	if now.Sub(bt.lastDaily) >= dailyResetInterval {
		bt.dailySpend = 0
		bt.lastDaily = now
		bt.logger.WithField("provider", bt.provider).Debug("Daily budget reset")
	}
	if now.Sub(bt.lastMonthly) >= monthlyResetInterval {
		bt.monthlySpend = 0
		bt.lastMonthly = now
		bt.logger.WithField("provider", bt.provider).Debug("Monthly budget reset")
	}
}

func (bt *BudgetTracker) logDenied(reason string, estimatedCost float64) {
	bt.logger.WithFields(logrus.Fields{
		"provider":       bt.provider,
		"reason":         reason,
		"estimated_cost": estimatedCost,
		"daily_spend":    bt.dailySpend,
		"monthly_spend":  bt.monthlySpend,
	}).Warn("Budget check failed")
}
