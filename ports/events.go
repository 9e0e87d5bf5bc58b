package ports

import (
	"context"

	"github.com/garvazsof/MVC/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishMinted(ctx context.Context, sessionID string, receipt *core.MintReceipt) error
}
