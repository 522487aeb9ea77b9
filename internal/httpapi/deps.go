package httpapi

import (
	"sync/atomic"

	"go.uber.org/zap"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/events"
	"jobfeed-engine/internal/ingest"
	"jobfeed-engine/internal/lifecycle"
	"jobfeed-engine/internal/poll"
)

type Deps struct {
	Reconciler *ingest.Reconciler
	Consumer   *lifecycle.Service
	Sweeper    *lifecycle.Sweeper
	Runner     *poll.Runner

	Hub *events.Hub
	Log *zap.Logger

	// CfgVal stores config.Config; handlers read the latest on every request.
	CfgVal      *atomic.Value
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
