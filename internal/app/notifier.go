package app

import (
	"context"
	"fmt"
	"time"

	"comandas-go/internal/notify"
	"comandas-go/internal/orders"
)

const pushTimeout = 5 * time.Second

// Notify implements orders.Notifier: order events go to the kitchen and order feeds,
// inventory events to admins, and anything needing an admin decision also goes out
// as a web push.
func (a *App) Notify(ctx context.Context, e orders.Event) {
	ev := SSEEvent{Type: string(e.Type), Data: e}

	switch e.Type {
	case orders.EventInventoryChanged, orders.EventLowStock:
		a.sseHub.Publish(ev, TopicInventory(), TopicRole(RoleAdmin))
	case orders.EventApprovalRequested:
		a.sseHub.Publish(ev, TopicRole(RoleAdmin), TopicOrdersGlobal())
	default:
		a.sseHub.Publish(ev, TopicOrdersGlobal(), TopicRole(RoleKitchen), TopicRole(RoleAdmin))
	}

	if msg, ok := pushMessageFor(e); ok && a.push.Enabled() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if _, err := a.push.SendToRole(pctx, RoleAdmin, msg); err != nil {
			a.log.Warn("admin push failed", "type", e.Type, "err", err)
		}
	}
}

func pushMessageFor(e orders.Event) (notify.Message, bool) {
	switch e.Type {
	case orders.EventApprovalRequested:
		return notify.Message{
			Title: "Orden pendiente de aprobación",
			Body:  fmt.Sprintf("Mesa %v: stock insuficiente", e.Data["table_number"]),
			URL:   fmt.Sprintf("/aprobaciones?orden=%d", e.OrderID),
			Tag:   fmt.Sprintf("approval-%d", e.OrderID),
		}, true
	case orders.EventLowStock:
		return notify.Message{
			Title: "Stock bajo",
			Body:  fmt.Sprintf("%v: quedan %v", e.Data["name"], e.Data["stock"]),
			URL:   "/inventario",
			Tag:   fmt.Sprintf("low-stock-%v", e.Data["product_id"]),
		}, true
	}
	return notify.Message{}, false
}
