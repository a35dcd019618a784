package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tributary-ai/search-router/internal/admission"
	"github.com/tributary-ai/search-router/internal/providers"
	"github.com/tributary-ai/search-router/internal/scoring"
	"github.com/tributary-ai/search-router/internal/types"
)

// Strategy names.
const (
	StrategyParallel = "parallel"
	StrategyCascade  = "cascade"
)

// errTimeout is the error text recorded for a provider cancelled by the
// shared timeout.
const errTimeout = "Timeout"

// errCircuitOpen is the error text recorded for a provider skipped because
// its breaker is open.
const errCircuitOpen = "Circuit breaker open"

// Outcome is the terminal artifact of one execution cycle. Results holds one
// entry per attempted (or skipped) provider; Denials holds providers that
// failed admission before any call was made. A provider never appears in
// both.
type Outcome struct {
	Results map[string]*types.ProviderExecutionResult `json:"results"`
	Denials map[string]*admission.Denial              `json:"denials,omitempty"`
}

// NewOutcome creates an empty outcome.
func NewOutcome() *Outcome {
	return &Outcome{
		Results: make(map[string]*types.ProviderExecutionResult),
		Denials: make(map[string]*admission.Denial),
	}
}

// Successes counts successful provider results.
func (o *Outcome) Successes() int {
	n := 0
	for _, r := range o.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// Strategy runs a selected provider list and returns per-provider results.
// Execution failures are captured inside the Outcome, never returned as
// errors.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, selected []string, query *types.SearchQuery, features types.QueryFeatures) *Outcome
}

// admit runs the pre-call gate for one provider and returns the request id
// on success. The caller must only invoke attempt when denial is nil.
func admit(controller *admission.Controller, name string, estimated float64) (string, *admission.Denial) {
	requestID := uuid.NewString()
	denial := controller.Admit(name, requestID, estimated)
	return requestID, denial
}

// attempt invokes one already-admitted provider under the given timeout,
// updating its circuit breaker, the metrics store and admission release. The
// search runs in its own goroutine so a provider that ignores context
// cancellation cannot stall the strategy past the deadline.
func attempt(
	ctx context.Context,
	name string,
	provider providers.SearchProvider,
	query *types.SearchQuery,
	timeout time.Duration,
	requestID string,
	estimated float64,
	controller *admission.Controller,
	metrics *scoring.MetricsStore,
) *types.ProviderExecutionResult {
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type searchReply struct {
		response *types.SearchResponse
		err      error
	}
	replyCh := make(chan searchReply, 1)
	go func() {
		response, err := provider.Search(callCtx, query)
		replyCh <- searchReply{response: response, err: err}
	}()

	result := &types.ProviderExecutionResult{Provider: name}
	breaker := controller.Breaker(name)

	select {
	case reply := <-replyCh:
		result.Duration = time.Since(start)
		if reply.err != nil {
			result.Error = reply.err.Error()
			breaker.RecordFailure()
			if metrics != nil {
				metrics.Record(name, result.Duration, false, 0)
			}
			controller.Release(name, requestID, 0, false)
			return result
		}
		result.Success = true
		result.Response = reply.response

		cost := estimated
		if reply.response != nil && reply.response.Cost > 0 {
			cost = reply.response.Cost
		}
		breaker.RecordSuccess()
		if metrics != nil {
			metrics.Record(name, result.Duration, true, resultQuality(reply.response))
		}
		controller.Release(name, requestID, cost, true)
		return result

	case <-callCtx.Done():
		result.Duration = time.Since(start)
		result.Error = errTimeout
		breaker.RecordFailure()
		if metrics != nil {
			metrics.Record(name, result.Duration, false, 0)
		}
		controller.Release(name, requestID, 0, false)
		return result
	}
}

// resultQuality is a crude yield measure: how full the response is relative
// to a ten-result page.
func resultQuality(response *types.SearchResponse) float64 {
	if response == nil {
		return 0
	}
	quality := float64(len(response.Results)) / 10.0
	if quality > 1.0 {
		quality = 1.0
	}
	return quality
}

// skippedResult builds the record for a provider whose breaker is open.
func skippedResult(name string) *types.ProviderExecutionResult {
	return &types.ProviderExecutionResult{
		Provider: name,
		Skipped:  true,
		Error:    errCircuitOpen,
	}
}
