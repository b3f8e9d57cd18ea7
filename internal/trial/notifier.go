package trial

import (
	"context"

	"github.com/mercato-local/marketplace/internal/models"

	log "github.com/sirupsen/logrus"
)

// Notification stages, named after the trial day they correspond to.
const (
	StageDay7  = "day7"
	StageDay12 = "day12"
	StageDay14 = "day14"
	StageDay15 = "day15"
)

// stageThresholds maps each stage to the maximum number of whole days
// remaining at which it fires: day7 at 8 days left, day12 at 3, day14 at 1,
// day15 on the final day.
var stageThresholds = []struct {
	Stage       string
	MaxDaysLeft int
}{
	{StageDay7, 8},
	{StageDay12, 3},
	{StageDay14, 1},
	{StageDay15, 0},
}

// Notifier delivers a staged trial notification. Delivery transport (email,
// push) lives behind this interface; the sweeper only decides when to fire.
type Notifier interface {
	Notify(ctx context.Context, store *models.Store, stage string, daysRemaining int) error
}

// LogNotifier logs staged notifications instead of delivering them.
type LogNotifier struct{}

// Notify writes the staged notification to the log.
func (LogNotifier) Notify(_ context.Context, store *models.Store, stage string, daysRemaining int) error {
	log.WithFields(log.Fields{
		"store_id":       store.ID,
		"stage":          stage,
		"days_remaining": daysRemaining,
	}).Info("trial notification")
	return nil
}

var _ Notifier = LogNotifier{}
