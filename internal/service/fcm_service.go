package service

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMService sends push notifications via Firebase Cloud Messaging.
type FCMService struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCMService creates an FCM service. Returns nil if Firebase is not configured.
func NewFCMService(ctx context.Context, serviceAccountPath string, log *zap.Logger) *FCMService {
	if serviceAccountPath == "" {
		return nil
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		log.Warn("fcm: init firebase app", zap.Error(err))
		return nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		log.Warn("fcm: messaging client", zap.Error(err))
		return nil
	}
	return &FCMService{client: client, log: log}
}

// SendToUser pushes a notification to one device token. Data values are stringified.
func (s *FCMService) SendToUser(ctx context.Context, token, notifType, title, body string, data map[string]interface{}) error {
	if s == nil || token == "" {
		return nil
	}
	dataStr := map[string]string{"type": notifType}
	for k, v := range data {
		dataStr[k] = fmt.Sprint(v)
	}
	msg := &messaging.Message{
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         dataStr,
		Token:        token,
		Android: &messaging.AndroidConfig{
			Priority:     "high",
			Notification: &messaging.AndroidNotification{Sound: "default"},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
		},
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.log.Warn("fcm: send", zap.String("type", notifType), zap.Error(err))
		return err
	}
	return nil
}
