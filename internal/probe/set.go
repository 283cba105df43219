package probe

import (
	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
	"github.com/paylens/paylens/internal/webclient"
)

// NewStrategySet builds one strategy per known protocol, in
// model.KnownProtocols order. The orchestrator iterates this set, which is
// what guarantees every completed scan has exactly one result per
// protocol.
func NewStrategySet(wc webclient.WebClient, cfg model.ScanConfig, logger logging.Logger) []Strategy {
	return []Strategy{
		NewX402Strategy(wc, cfg, logger),
		NewACPStrategy(wc, cfg, logger),
		NewAP2Strategy(wc, cfg, logger),
	}
}
