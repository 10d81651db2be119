package testutil

import (
	"github.com/billix/billix/internal/config"
	"github.com/billix/billix/internal/logger"
	"github.com/billix/billix/internal/pubsub"
	"github.com/billix/billix/internal/pubsub/memory"
)

// NewInMemoryPubSub returns the gochannel-backed pubsub used by the
// webhook publisher in tests.
func NewInMemoryPubSub(cfg *config.Configuration, logger *logger.Logger) pubsub.PubSub {
	return memory.NewPubSub(cfg, logger)
}
