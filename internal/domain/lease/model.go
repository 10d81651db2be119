package lease

import (
	"time"

	"github.com/billix/billix/internal/types"
)

// Lease makes one scheduler run per (tenant, task, period) idempotent
// across concurrent scheduler instances. Acquiring an existing lease fails,
// so only one runner executes the task for that period.
type Lease struct {
	ID         string              `db:"id" json:"id"`
	Task       types.ScheduledTask `db:"task" json:"task"`
	PeriodKey  string              `db:"period_key" json:"period_key"`
	AcquiredAt time.Time           `db:"acquired_at" json:"acquired_at"`
	types.BaseModel
}
