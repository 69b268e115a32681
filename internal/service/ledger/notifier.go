package ledger

import (
	"github.com/reputalia/creditos/internal/models"
)

// DefaultThresholdPercent is the low balance boundary used when the service
// is not configured with one
const DefaultThresholdPercent = 20

// Notifier classifies a balance against the low threshold.
// It only classifies: delivery (banner, email) belongs to callers.
type Notifier struct {
	thresholdPercent int64
}

func NewNotifier(thresholdPercent int64) Notifier {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}

	return Notifier{thresholdPercent: thresholdPercent}
}

// Classify returns critical on an empty balance, low when the remaining
// share of everything ever granted is at or below the threshold and none
// otherwise. An account that was never granted anything is critical at zero
// and none otherwise.
func (n Notifier) Classify(balance models.Balance) models.AlertLevel {
	switch {
	case balance.Current == 0:
		return models.AlertCritical
	case balance.Granted > 0 && balance.Current*100 <= n.thresholdPercent*balance.Granted:
		return models.AlertLow
	default:
		return models.AlertNone
	}
}
