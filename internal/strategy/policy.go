package strategy

import (
	"fmt"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

// ExitPolicy decides which exit label wins when several trigger on the same day
type ExitPolicy string

const (
	StopLossFirst ExitPolicy = "stop_loss_first"
	TimeExitFirst ExitPolicy = "time_exit_first"
)

// Order returns exit checks in evaluation order. Mean reversion is always last.
func (p ExitPolicy) Order() []models.ExitReason {
	if p == TimeExitFirst {
		return []models.ExitReason{models.ExitMaxHold, models.ExitStopLoss, models.ExitMeanReversion}
	}
	return []models.ExitReason{models.ExitStopLoss, models.ExitMaxHold, models.ExitMeanReversion}
}

// ParseExitPolicy maps a configured name to a policy
func ParseExitPolicy(name string) (ExitPolicy, error) {
	switch ExitPolicy(name) {
	case "", StopLossFirst:
		return StopLossFirst, nil
	case TimeExitFirst:
		return TimeExitFirst, nil
	default:
		return "", fmt.Errorf("unknown exit policy %q", name)
	}
}
