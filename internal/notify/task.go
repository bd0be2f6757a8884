package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/db"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/lock"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// TaskOrderNotify is the task type for outbound order chat notifications.
const TaskOrderNotify = "notify:order"

// QueueName is the asynq queue notifications are routed through.
const QueueName = "notify"

type orderNotifyPayload struct {
	OrderID    string `json:"orderId"`
	Topic      string `json:"topic"`
	Status     string `json:"status"`
	GrandTotal int64  `json:"grandTotal"`
	CustomerID string `json:"customerId,omitempty"`
}

// Enqueuer implements events.Notifier by deferring chat sends to the task
// queue, keeping bot latency out of the request path.
type Enqueuer struct {
	Client *asynq.Client
}

// Notify schedules a chat notification for the emitted event.
func (e Enqueuer) Notify(ctx context.Context, event db.DomainEvent) error {
	if e.Client == nil {
		return nil
	}
	if !notifiableTopic(event.Topic) {
		return nil
	}
	var decoded struct {
		OrderID    string `json:"orderId"`
		Status     string `json:"status"`
		GrandTotal int64  `json:"grandTotal"`
		CustomerID string `json:"customerId"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &decoded); err != nil {
			return fmt.Errorf("notify: decode event payload: %w", err)
		}
	}
	if decoded.OrderID == "" {
		return nil
	}
	payload, err := json.Marshal(orderNotifyPayload{
		OrderID:    decoded.OrderID,
		Topic:      event.Topic,
		Status:     decoded.Status,
		GrandTotal: decoded.GrandTotal,
		CustomerID: decoded.CustomerID,
	})
	if err != nil {
		return fmt.Errorf("notify: encode task payload: %w", err)
	}
	task := asynq.NewTask(TaskOrderNotify, payload)
	_, err = e.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("notify: enqueue: %w", err)
	}
	return nil
}

func notifiableTopic(topic string) bool {
	for _, t := range events.DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}

// CustomerQuerier resolves a customer's chat address.
type CustomerQuerier interface {
	GetCustomerByID(ctx context.Context, id pgtype.UUID) (db.Customer, error)
}

// Worker delivers queued order notifications through the bot API.
type Worker struct {
	Bot         *BotClient
	Q           CustomerQuerier
	StaffChatID string
	Locker      lock.Locker
	LockTTL     time.Duration
	Log         zerolog.Logger
}

// HandleOrderNotify processes one order notification task. Sends for the
// same order are serialized so button state never interleaves.
func (w *Worker) HandleOrderNotify(ctx context.Context, t *asynq.Task) error {
	if w == nil || w.Bot == nil {
		return errors.New("notify: worker not configured")
	}
	var payload orderNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("notify: decode task: %w", err)
	}
	if payload.OrderID == "" {
		return nil
	}
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := fmt.Sprintf("lock:notify:%s", payload.OrderID)
	return w.Locker.WithLock(ctx, key, ttl, func(ctx context.Context) error {
		return w.send(ctx, payload)
	})
}

func (w *Worker) send(ctx context.Context, payload orderNotifyPayload) error {
	text := MessageText(payload.Topic, payload.OrderID, payload.GrandTotal)
	buttons := StatusButtons(payload.OrderID, db.OrderStatus(payload.Status))

	if w.StaffChatID != "" {
		if err := w.Bot.SendMessage(ctx, w.StaffChatID, text, buttons); err != nil {
			if obs.BotNotifyTotal != nil {
				obs.BotNotifyTotal.WithLabelValues("failed").Inc()
			}
			return err
		}
		if obs.BotNotifyTotal != nil {
			obs.BotNotifyTotal.WithLabelValues("sent").Inc()
		}
	}

	// Customers get a plain status message without action buttons.
	if chatID := w.customerChatID(ctx, payload.CustomerID); chatID != "" {
		if err := w.Bot.SendMessage(ctx, chatID, text, nil); err != nil {
			if obs.BotNotifyTotal != nil {
				obs.BotNotifyTotal.WithLabelValues("failed").Inc()
			}
			w.Log.Warn().Err(err).Str("order_id", payload.OrderID).Msg("customer notification failed")
			return nil
		}
		if obs.BotNotifyTotal != nil {
			obs.BotNotifyTotal.WithLabelValues("sent").Inc()
		}
	}
	return nil
}

func (w *Worker) customerChatID(ctx context.Context, customerID string) string {
	if w.Q == nil || customerID == "" {
		return ""
	}
	parsed, err := parseUUID(customerID)
	if err != nil {
		return ""
	}
	customer, err := w.Q.GetCustomerByID(ctx, parsed)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			w.Log.Warn().Err(err).Str("customer_id", customerID).Msg("customer lookup failed")
		}
		return ""
	}
	if !customer.ChatID.Valid {
		return ""
	}
	return customer.ChatID.String
}
