package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	dbgen "github.com/noah-isme/storefront-checkout/internal/db/gen"
	"github.com/noah-isme/storefront-checkout/internal/events"
)

// Task type names registered with asynq.
const (
	TypeOrderCreated    = "order:created"
	TypeVoucherRedeemed = "voucher:redeemed"
)

// DefaultQueue is the asynq queue checkout tasks are published to.
const DefaultQueue = "checkout"

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns domain events into asynq tasks. It plugs into events.Bus.
type Notifier struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

var topicTasks = map[string]string{
	events.TopicOrderCreated:    TypeOrderCreated,
	events.TopicVoucherRedeemed: TypeVoucherRedeemed,
}

// Notify enqueues the task for ev. Each event is enqueued at most once, keyed by event id.
func (n Notifier) Notify(ctx context.Context, ev dbgen.DomainEvent) error {
	if n.Client == nil {
		return errors.New("tasks: client not configured")
	}
	taskType, ok := topicTasks[ev.Topic]
	if !ok {
		return nil
	}
	opts := []asynq.Option{asynq.Queue(n.queue())}
	if ev.ID.Valid {
		opts = append(opts, asynq.TaskID(uuid.UUID(ev.ID.Bytes).String()))
	}
	if n.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(n.MaxRetry))
	}
	if n.Timeout > 0 {
		opts = append(opts, asynq.Timeout(n.Timeout))
	}
	_, err := n.Client.EnqueueContext(ctx, asynq.NewTask(taskType, ev.Payload), opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("tasks: enqueue %s: %w", taskType, err)
	}
	return nil
}

func (n Notifier) queue() string {
	if strings.TrimSpace(n.Queue) == "" {
		return DefaultQueue
	}
	return n.Queue
}

// RankingInvalidator drops cached customer spending.
type RankingInvalidator interface {
	InvalidateCustomer(ctx context.Context, customerID string) error
}

// VoucherInvalidator drops cached voucher records.
type VoucherInvalidator interface {
	Invalidate(ctx context.Context, code string)
}

// Processor handles checkout tasks in the worker.
type Processor struct {
	Ranking  RankingInvalidator
	Vouchers VoucherInvalidator
	Logger   zerolog.Logger
}

// Register installs the task handlers on mux.
func (p Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderCreated, p.HandleOrderCreated)
	mux.HandleFunc(TypeVoucherRedeemed, p.HandleVoucherRedeemed)
}

// HandleOrderCreated refreshes the customer's ranking inputs after a new order.
func (p Processor) HandleOrderCreated(ctx context.Context, t *asynq.Task) error {
	var payload events.OrderCreated
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if payload.CustomerID == "" || p.Ranking == nil {
		return nil
	}
	if err := p.Ranking.InvalidateCustomer(ctx, payload.CustomerID); err != nil {
		return fmt.Errorf("invalidate customer ranking: %w", err)
	}
	p.Logger.Info().Str("od_id", payload.OdID).Str("customer_id", payload.CustomerID).Msg("customer_ranking_invalidated")
	return nil
}

// HandleVoucherRedeemed drops the cached voucher so the next validation sees the new usage.
func (p Processor) HandleVoucherRedeemed(ctx context.Context, t *asynq.Task) error {
	var payload events.VoucherRedeemed
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if payload.Code == "" || p.Vouchers == nil {
		return nil
	}
	p.Vouchers.Invalidate(ctx, payload.Code)
	return nil
}
