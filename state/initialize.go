package state

import (
	"time"

	"go.uber.org/zap"
)

// newLocalEnv creates environment with working defaults: logger is usable
// before configuration is loaded.
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		Log:   zap.NewNop(),
		start: time.Now(),
	}
}
