package notify

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
)

const callbackPrefix = "order"

// CallbackData encodes an order action into button callback data.
func CallbackData(orderID string, target db.OrderStatus) string {
	return fmt.Sprintf("%s:%s:%s", callbackPrefix, orderID, target)
}

// ParseCallbackData decodes button callback data back into an order action.
func ParseCallbackData(data string) (orderID string, target db.OrderStatus, ok bool) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return "", "", false
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], db.OrderStatus(parts[2]), true
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "Pesanan baru diterima"
	case events.TopicOrderConfirmed:
		return "Pesanan dikonfirmasi"
	case events.TopicOrderCompleted:
		return "Pesanan selesai"
	case events.TopicOrderCanceled:
		return "Pesanan dibatalkan"
	default:
		return fmt.Sprintf("Notifikasi %s", topic)
	}
}

// MessageText renders the notification body for an order event.
func MessageText(topic, orderID string, grandTotal int64) string {
	lines := []string{subjectFor(topic)}
	if orderID != "" {
		lines = append(lines, fmt.Sprintf("ID Pesanan: %s", orderID))
	}
	if grandTotal > 0 {
		lines = append(lines, fmt.Sprintf("Total: %d", grandTotal))
	}
	return strings.Join(lines, "\n")
}

// StatusButtons returns the action rows offered for an order in the given
// state. Terminal states get no buttons.
func StatusButtons(orderID string, status db.OrderStatus) [][]Button {
	switch status {
	case db.OrderStatusPending:
		return [][]Button{{
			{Text: "Konfirmasi", Data: CallbackData(orderID, db.OrderStatusConfirmed)},
			{Text: "Batalkan", Data: CallbackData(orderID, db.OrderStatusCancelled)},
		}}
	case db.OrderStatusConfirmed:
		return [][]Button{{
			{Text: "Selesai", Data: CallbackData(orderID, db.OrderStatusCompleted)},
			{Text: "Batalkan", Data: CallbackData(orderID, db.OrderStatusCancelled)},
		}}
	default:
		return nil
	}
}
