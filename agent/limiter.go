package agent

import "errors"

// defaultMaxModelCalls bounds the tool loop for a single run. A model that
// keeps requesting tools past this point is looping.
const defaultMaxModelCalls = 8

// ErrCallBudgetExhausted is returned when a run exceeds its model call budget.
var ErrCallBudgetExhausted = errors.New("model call budget exhausted")

// callLimiter counts model invocations within one run.
type callLimiter struct {
	max  int
	used int
}

func newCallLimiter(max int) *callLimiter {
	if max <= 0 {
		max = defaultMaxModelCalls
	}
	return &callLimiter{max: max}
}

// clone returns a fresh counter with the same budget, so concurrent runs of
// the same agent never share state.
func (l *callLimiter) clone() *callLimiter {
	return &callLimiter{max: l.max}
}

// take consumes one call from the budget.
func (l *callLimiter) take() error {
	if l.used >= l.max {
		return ErrCallBudgetExhausted
	}
	l.used++
	return nil
}
