package motionplan

import "github.com/pkg/errors"

// ErrPlanningBudgetExceeded is returned when a plan does not finish within its time budget.
var ErrPlanningBudgetExceeded = errors.New("planning budget exceeded")

// NewUnknownFinderError is returned when a finder name is not recognized.
func NewUnknownFinderError(name string) error {
	return errors.Errorf("unknown finder %q, expected %q or %q", name, FinderThetaStar, FinderAStar)
}
