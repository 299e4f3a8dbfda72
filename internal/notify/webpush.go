package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"comandas-go/internal/db"
)

// Message is the JSON payload the service worker receives.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subscriber is a mailto: address or https URL identifying the sender.
	Subscriber string
	TTL        time.Duration
}

// WebPush delivers messages to the stored browser subscriptions of a role.
type WebPush struct {
	q   *db.Queries
	cfg Config
	log *slog.Logger

	client webpush.HTTPClient
}

func NewWebPush(q *db.Queries, cfg Config, logger *slog.Logger) *WebPush {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	return &WebPush{q: q, cfg: cfg, log: logger, client: &http.Client{Timeout: 10 * time.Second}}
}

// Enabled reports whether VAPID keys are configured.
func (w *WebPush) Enabled() bool {
	return w != nil && w.cfg.VAPIDPublicKey != "" && w.cfg.VAPIDPrivateKey != ""
}

func (w *WebPush) PublicKey() string { return w.cfg.VAPIDPublicKey }

// SendToRole pushes msg to every subscription of active users with role. Subscriptions the
// push service reports as gone are deleted. It returns how many deliveries were accepted.
func (w *WebPush) SendToRole(ctx context.Context, role string, msg Message) (int, error) {
	if !w.Enabled() {
		return 0, nil
	}
	subs, err := w.q.ListPushSubscriptionsByRole(ctx, role)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode push message: %w", err)
	}

	sent := 0
	for _, s := range subs {
		ok, err := w.send(ctx, payload, s)
		if err != nil {
			w.log.Warn("web push failed", "endpoint", s.Endpoint, "user_id", s.UserID, "err", err)
			continue
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

func (w *WebPush) send(ctx context.Context, payload []byte, s db.PushSubscription) (bool, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys:     webpush.Keys{P256dh: s.P256dh, Auth: s.Auth},
	}, &webpush.Options{
		HTTPClient:      w.client,
		Subscriber:      w.cfg.Subscriber,
		VAPIDPublicKey:  w.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: w.cfg.VAPIDPrivateKey,
		TTL:             int(w.cfg.TTL.Seconds()),
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if err := w.q.DeletePushSubscription(ctx, s.Endpoint); err != nil {
			return false, fmt.Errorf("drop expired subscription: %w", err)
		}
		w.log.Info("push subscription expired", "user_id", s.UserID)
		return false, nil
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("push service answered %s", resp.Status)
	}
	return true, nil
}
