package notify

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/order"
)

// SecretHeader carries the shared secret on inbound bot webhook calls.
const SecretHeader = "X-Bot-Api-Secret-Token"

const maxWebhookBody = 1 << 20

// OrderStatusUpdater applies a guarded status transition for an order.
type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, id pgtype.UUID, target db.OrderStatus) (db.Order, error)
}

type update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *callbackQuery `json:"callback_query"`
}

type callbackQuery struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

// WebhookHandler processes button callbacks from the chat bot. Each pressed
// button maps to one order status transition.
type WebhookHandler struct {
	Secret    string
	Orders    OrderStatusUpdater
	Bot       *BotClient
	Replay    ReplayProtector
	ReplayTTL time.Duration
	Log       zerolog.Logger
}

// Handle consumes one webhook update. The bot platform retries on non-2xx,
// so only transient faults return an error status.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.Secret)) != 1 {
		countCallback("unauthorized")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var upd update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&upd); err != nil {
		countCallback("invalid")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if upd.CallbackQuery == nil {
		// Non-callback updates (plain messages etc.) are acknowledged and dropped.
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	replayKey := fmt.Sprintf("bot:update:%d", upd.UpdateID)
	if h.Replay != nil && h.ReplayTTL > 0 {
		ok, err := h.Replay.Acquire(ctx, replayKey, h.ReplayTTL)
		if err != nil {
			h.Log.Error().Err(err).Msg("replay guard unavailable")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !ok {
			countCallback("duplicate")
			w.WriteHeader(http.StatusOK)
			return
		}
	}

	orderID, target, ok := ParseCallbackData(upd.CallbackQuery.Data)
	if !ok {
		countCallback("invalid")
		h.answer(ctx, upd.CallbackQuery.ID, "Aksi tidak dikenali")
		w.WriteHeader(http.StatusOK)
		return
	}
	oID, err := parseUUID(orderID)
	if err != nil {
		countCallback("invalid")
		h.answer(ctx, upd.CallbackQuery.ID, "Aksi tidak dikenali")
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.Orders == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, err = h.Orders.UpdateStatus(ctx, oID, target)
	switch {
	case err == nil:
		countCallback("ok")
		h.answer(ctx, upd.CallbackQuery.ID, subjectFor(topicForStatus(target)))
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, order.ErrUnknownStatus), errors.Is(err, pgx.ErrNoRows):
		countCallback("rejected")
		h.answer(ctx, upd.CallbackQuery.ID, "Transisi status tidak diizinkan")
		w.WriteHeader(http.StatusOK)
	default:
		h.Log.Error().Err(err).Str("order_id", orderID).Msg("callback status update failed")
		// Free the replay key so the platform's retry is not suppressed.
		if h.Replay != nil && h.ReplayTTL > 0 {
			_ = h.Replay.Release(ctx, replayKey)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (h *WebhookHandler) answer(ctx context.Context, callbackID, text string) {
	if h.Bot == nil || callbackID == "" {
		return
	}
	if err := h.Bot.AnswerCallback(ctx, callbackID, text); err != nil {
		h.Log.Warn().Err(err).Msg("answer callback failed")
	}
}

func topicForStatus(status db.OrderStatus) string {
	switch status {
	case db.OrderStatusConfirmed:
		return events.TopicOrderConfirmed
	case db.OrderStatusCompleted:
		return events.TopicOrderCompleted
	case db.OrderStatusCancelled:
		return events.TopicOrderCanceled
	default:
		return ""
	}
}

func countCallback(result string) {
	if obs.BotCallbackTotal != nil {
		obs.BotCallbackTotal.WithLabelValues(result).Inc()
	}
}

func parseUUID(value string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}
