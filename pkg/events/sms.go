package events

import (
	"context"
	"time"
)

// SMSNotifier delivers text messages to a phone number
type SMSNotifier interface {
	SendSMS(ctx context.Context, phoneNumber, text string) error
}

// SMSMessage is consumed by the external SMS gateway
type SMSMessage struct {
	PhoneNumber string    `json:"phone_number"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublisherSMSNotifier hands messages to the gateway through a publisher
type PublisherSMSNotifier struct {
	publisher Publisher
}

func NewPublisherSMSNotifier(publisher Publisher) *PublisherSMSNotifier {
	return &PublisherSMSNotifier{publisher: publisher}
}

func (n *PublisherSMSNotifier) SendSMS(ctx context.Context, phoneNumber, text string) error {
	return n.publisher.Publish(ctx, phoneNumber, SMSMessage{
		PhoneNumber: phoneNumber,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	})
}
