// Package push delivers batch push notifications through the OneSignal REST
// API. The engine treats delivery as best-effort at the batch level: a
// successful API call means the batch was accepted, not that every device
// received it.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	oneSignalURL     = "https://onesignal.com/api/v1/notifications"
	oneSignalTimeout = 15 * time.Second
)

// DeliveryError reports a non-success response from the push collaborator.
type DeliveryError struct {
	Status int
	Body   string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("onesignal: status %d: %s", e.Status, e.Body)
}

// OneSignal sends push notifications addressed by external user id.
// Nil-safe: when not configured, Send is a no-op.
type OneSignal struct {
	appID      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOneSignal creates a sender. Returns nil if apiKey is empty
// (notifications disabled).
func NewOneSignal(appID, apiKey string, logger *slog.Logger) *OneSignal {
	if apiKey == "" {
		return nil
	}
	return &OneSignal{
		appID:   appID,
		apiKey:  apiKey,
		baseURL: oneSignalURL,
		httpClient: &http.Client{
			Timeout: oneSignalTimeout,
		},
		logger: logger,
	}
}

type oneSignalRequest struct {
	AppID         string            `json:"app_id"`
	ExternalIDs   []string          `json:"include_external_user_ids"`
	TargetChannel string            `json:"target_channel"`
	Headings      map[string]string `json:"headings"`
	Contents      map[string]string `json:"contents"`
	Priority      int               `json:"priority"`
	IOSBadgeType  string            `json:"ios_badgeType"`
	IOSBadgeCount int               `json:"ios_badgeCount"`
}

// Send pushes one message to a batch of users. The recipient list holds the
// app's own user ids, registered with OneSignal as external user ids at
// device login.
func (s *OneSignal) Send(ctx context.Context, userIDs []string, title, body string) error {
	if s == nil {
		return nil
	}
	if len(userIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(oneSignalRequest{
		AppID:         s.appID,
		ExternalIDs:   userIDs,
		TargetChannel: "push",
		Headings:      map[string]string{"en": title, "tr": title},
		Contents:      map[string]string{"en": body, "tr": body},
		Priority:      10,
		IOSBadgeType:  "Increase",
		IOSBadgeCount: 1,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &DeliveryError{Status: resp.StatusCode, Body: string(raw)}
	}

	s.logger.Info("push batch accepted", "recipients", len(userIDs), "title", title)
	return nil
}
