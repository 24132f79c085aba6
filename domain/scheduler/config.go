package scheduler

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds scheduler configuration.
//
// Each task runs on its interval unless a cron schedule is set, which takes
// precedence. Schedules use the six-field form with seconds:
// "0 */15 * * * *" runs every fifteen minutes.
type Config struct {
	Enabled     bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	TaskTimeout time.Duration `env:"SCHEDULER_TASK_TIMEOUT" envDefault:"5m"`

	RootSweepInterval time.Duration `env:"ROOT_SWEEP_INTERVAL" envDefault:"10m"`
	RootSweepSchedule string        `env:"ROOT_SWEEP_SCHEDULE" envDefault:""`
	RootSweepBatch    int           `env:"ROOT_SWEEP_BATCH" envDefault:"100"`

	OrphanReportInterval time.Duration `env:"ORPHAN_REPORT_INTERVAL" envDefault:"1h"`
	OrphanReportSchedule string        `env:"ORPHAN_REPORT_SCHEDULE" envDefault:""`
	OrphanReportLimit    int           `env:"ORPHAN_REPORT_LIMIT" envDefault:"500"`
}

// NewConfig reads the scheduler configuration from the environment.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse scheduler config: %w", err)
	}
	return cfg, nil
}
