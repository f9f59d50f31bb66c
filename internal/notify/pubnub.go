package notify

import (
	"context" // Request scoped context
	"fmt"     // Channel names

	pubnub "github.com/pubnub/go/v7" // PubNub realtime client
	"github.com/sirupsen/logrus"     // Logrus for structured logging
)

// Publisher is the part of the PubNub client used here
type Publisher interface {
	Publish(channel string, message any) error
}

// pubnubPublisher adapts *pubnub.PubNub to Publisher
type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func (p pubnubPublisher) Publish(channel string, message any) error {
	_, _, err := p.pn.Publish().Channel(channel).Message(message).Execute()
	return err
}

// PubNubBroadcaster publishes to per-event and per-user PubNub channels
type PubNubBroadcaster struct {
	pub Publisher
}

// PubNubConfig holds PubNub credentials
type PubNubConfig struct {
	PublishKey   string // Publish key
	SubscribeKey string // Subscribe key
	SecretKey    string // Secret key
	UserID       string // Identity of this publisher
}

// NewPubNubBroadcaster builds a broadcaster backed by the PubNub client
func NewPubNubBroadcaster(cfg PubNubConfig) *PubNubBroadcaster {
	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnConfig.PublishKey = cfg.PublishKey
	pnConfig.SubscribeKey = cfg.SubscribeKey
	pnConfig.SecretKey = cfg.SecretKey
	return &PubNubBroadcaster{pub: pubnubPublisher{pn: pubnub.NewPubNub(pnConfig)}}
}

// NewPubNubBroadcasterWith wraps an existing publisher
func NewPubNubBroadcasterWith(pub Publisher) *PubNubBroadcaster {
	return &PubNubBroadcaster{pub: pub}
}

// EventChannel is the channel clients browsing an event subscribe to
func EventChannel(eventID string) string {
	return fmt.Sprintf("event-%s", eventID)
}

// UserChannel is the private channel of a user
func UserChannel(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

// InventoryChanged publishes an inventory update on the event channel
func (b *PubNubBroadcaster) InventoryChanged(ctx context.Context, eventID, ticketTypeID string, available int) {
	b.publish(EventChannel(eventID), map[string]any{
		"type":           "inventory_updated",
		"ticket_type_id": ticketTypeID,
		"available":      available,
	})
}

// NotifyUser publishes a notice on the user channel
func (b *PubNubBroadcaster) NotifyUser(ctx context.Context, userID uint, message string) {
	b.publish(UserChannel(userID), map[string]any{
		"type":    "notification",
		"message": message,
	})
}

func (b *PubNubBroadcaster) publish(channel string, message map[string]any) {
	if err := b.pub.Publish(channel, message); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel": channel,
			"error":   err.Error(),
		}).Warn("PubNub publish failed")
	}
}
