package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/garvazsof/MVC/core"
	"github.com/garvazsof/MVC/ports"
)

const (
	TopicLogout = "mvc.logout"
	TopicMinted = "mvc.minted"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// MintedEvent is published once a mint transaction is included
type MintedEvent struct {
	SessionID   string `json:"session_id"`
	TxHash      string `json:"tx_hash"`
	BlockNumber string `json:"block_number,omitempty"`
	Recipient   string `json:"recipient"`
	URI         string `json:"uri"`
	TokenID     string `json:"token_id,omitempty"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

// PublishMinted publishes a minted event
func (p *WatermillPublisher) PublishMinted(ctx context.Context, sessionID string, receipt *core.MintReceipt) error {
	event := MintedEvent{
		SessionID: sessionID,
		TxHash:    receipt.TxHash.Hex(),
		Recipient: receipt.Recipient.Hex(),
		URI:       receipt.URI,
	}
	if receipt.BlockNumber != nil {
		event.BlockNumber = receipt.BlockNumber.String()
	}
	if receipt.TokenID != nil {
		event.TokenID = receipt.TokenID.String()
	}

	return p.publish(ctx, TopicMinted, watermill.NewUUID(), event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, uuid string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
