package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/custodykit/keystone/core"
	"github.com/custodykit/keystone/ports"
)

const (
	topicAccountMinted   = "keystone.account.minted"
	topicPermissionAdded = "keystone.permission.added"
	topicSessionRevoked  = "keystone.session.revoked"
)

// AccountMintedEvent announces a newly minted managed key account.
type AccountMintedEvent struct {
	TokenID        string `json:"token_id"`
	PublicKey      string `json:"public_key"`
	DerivedAddress string `json:"derived_address"`
}

// PermissionAddedEvent announces a permission list mutation.
type PermissionAddedEvent struct {
	TokenID        string `json:"token_id"`
	AuthMethodType uint32 `json:"auth_method_type"`
	AuthMethodID   string `json:"auth_method_id"`
}

// SessionRevokedEvent announces a discarded session credential.
type SessionRevokedEvent struct {
	TokenID      string `json:"token_id"`
	CredentialID string `json:"credential_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishAccountMinted publishes an account minted event.
func (p *WatermillPublisher) PublishAccountMinted(ctx context.Context, account core.ManagedKeyAccount) error {
	return p.publish(topicAccountMinted, AccountMintedEvent{
		TokenID:        account.TokenID,
		PublicKey:      account.PublicKey,
		DerivedAddress: account.DerivedAddress.Hex(),
	})
}

// PublishPermissionAdded publishes a permission added event.
func (p *WatermillPublisher) PublishPermissionAdded(ctx context.Context, tokenID string, record core.PermissionRecord) error {
	return p.publish(topicPermissionAdded, PermissionAddedEvent{
		TokenID:        tokenID,
		AuthMethodType: uint32(record.AuthMethodType),
		AuthMethodID:   record.AuthMethodID,
	})
}

// PublishSessionRevoked publishes a session revoked event.
func (p *WatermillPublisher) PublishSessionRevoked(ctx context.Context, tokenID, credentialID string) error {
	return p.publish(topicSessionRevoked, SessionRevokedEvent{
		TokenID:      tokenID,
		CredentialID: credentialID,
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
