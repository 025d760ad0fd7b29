package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier pushes notifications through Firebase Cloud Messaging. Each
// owner's devices subscribe to the topic "user-<ownerID>"; staff devices
// subscribe to "user-staff".
type FCMNotifier struct {
	client messagingClient
	title  string
	logger zerolog.Logger
}

// NewFCMNotifier creates a push notifier from a service account file.
func NewFCMNotifier(ctx context.Context, credentialsFile, title string, logger zerolog.Logger) (*FCMNotifier, error) {
	logger = logger.With().Str("component", "fcm-notifier").Logger()

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	logger.Info().Msg("FCM notifier initialised")
	return &FCMNotifier{client: client, title: title, logger: logger}, nil
}

// Topic returns the FCM topic a recipient's devices subscribe to.
func Topic(recipient string) string {
	return "user-" + recipient
}

// Notify sends a push message to the recipient's topic.
func (n *FCMNotifier) Notify(ctx context.Context, recipient, message, link string) error {
	msg := &messaging.Message{
		Topic: Topic(recipient),
		Notification: &messaging.Notification{
			Title: n.title,
			Body:  message,
		},
	}
	if link != "" {
		msg.Data = map[string]string{"link": link}
	}

	id, err := n.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}

	n.logger.Debug().Str("recipient", recipient).Str("message_id", id).Msg("push notification sent")
	return nil
}
