package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
)

// DefaultEventTimeout bounds a single fire-and-forget publish.
const DefaultEventTimeout = 5 * time.Second

// orderNamespace derives stable order ids from idempotency keys.
var orderNamespace = uuid.MustParse("8c4c7e44-4a3f-4f53-9a39-6d1f0f1d2b7e")

// RetryPolicy bounds the inventory round trips made while creating an order.
type RetryPolicy struct {
	// CheckAttempts is the number of check_inventory attempts. Reserve is always attempted once.
	CheckAttempts int
	// Timeout bounds every individual check or reserve attempt.
	Timeout time.Duration
	// Backoff is the pause between failed check attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy is three check attempts of five seconds each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{CheckAttempts: 3, Timeout: 5 * time.Second}
}

// Coordinator runs the check-then-reserve protocol against the inventory service and owns the order ledger.
type Coordinator struct {
	repo         ports.Repository
	inventory    ports.InventoryClient
	events       ports.EventPublisher
	policy       RetryPolicy
	eventTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	pending      sync.WaitGroup
}

// Option customizes the coordinator.
type Option func(*Coordinator)

// WithEvents enables order notifications.
func WithEvents(events ports.EventPublisher) Option {
	return func(c *Coordinator) {
		c.events = events
	}
}

// WithRetryPolicy overrides the check retry policy. Non-positive fields keep their defaults.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Coordinator) {
		if policy.CheckAttempts > 0 {
			c.policy.CheckAttempts = policy.CheckAttempts
		}
		if policy.Timeout > 0 {
			c.policy.Timeout = policy.Timeout
		}
		if policy.Backoff > 0 {
			c.policy.Backoff = policy.Backoff
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides how order ids are minted when no idempotency key is given.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// WithEventTimeout bounds each fire-and-forget publish.
func WithEventTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.eventTimeout = timeout
		}
	}
}

// NewCoordinator wires the coordinator with its ledger and inventory client.
func NewCoordinator(repo ports.Repository, inventory ports.InventoryClient, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:         repo,
		inventory:    inventory,
		policy:       DefaultRetryPolicy(),
		eventTimeout: DefaultEventTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Create checks availability, reserves stock once, persists a pending order and announces it.
func (c *Coordinator) Create(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if err := ValidateCreateInput(input); err != nil {
		return nil, err
	}
	orderID := c.OrderID(input)
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		existing, err := c.repo.GetByID(ctx, orderID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
	}

	token := c.ReservationToken(input, orderID)
	prices, err := c.checkWithRetry(ctx, token, input.Items)
	if err != nil {
		return nil, err
	}
	if err := c.ReserveInventory(ctx, token, input.Items); err != nil {
		return nil, err
	}
	order, err := c.RecordOrder(ctx, orderID, input, prices)
	if err != nil {
		return nil, err
	}
	c.emit(ctx, domain.OrderCreated{
		BaseEvent: domain.BaseEvent{Timestamp: order.CreatedAt},
		OrderID:   order.ID,
		Items:     order.Items,
	})
	return order, nil
}

// Get loads an order by id.
func (c *Coordinator) Get(ctx context.Context, id string) (*domain.Order, error) {
	return c.repo.GetByID(ctx, strings.TrimSpace(id))
}

// List returns every order.
func (c *Coordinator) List(ctx context.Context) ([]*domain.Order, error) {
	return c.repo.List(ctx)
}

// UpdateStatus overwrites the status of an existing order and announces the change.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	next, err := domain.ParseStatus(status)
	if err != nil {
		return nil, mapError(err)
	}
	order, err := c.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if err := order.UpdateStatus(next, c.now()); err != nil {
		return nil, mapError(err)
	}
	saved, err := c.repo.Save(ctx, order)
	if err != nil {
		return nil, err
	}
	c.emit(ctx, domain.OrderStatusUpdated{
		BaseEvent: domain.BaseEvent{Timestamp: saved.UpdatedAt},
		OrderID:   saved.ID,
		Status:    saved.Status,
		Items:     saved.Items,
	})
	return saved, nil
}

// CheckInventory makes a single check attempt bounded by the policy timeout.
// The token lets a retried order see its own earlier reservation as available.
func (c *Coordinator) CheckInventory(ctx context.Context, token string, items []ports.ItemInput) (map[string]decimal.Decimal, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	result, err := c.inventory.CheckInventory(attemptCtx, token, toInventoryItems(items))
	if err != nil {
		return nil, asTransportError(err)
	}
	if !result.Available {
		return nil, &InsufficientInventoryError{Message: result.Message}
	}
	return result.Prices, nil
}

// ReserveInventory makes the single reserve attempt. Any failure other than a stock shortfall
// is reported as ErrReservationFailed.
func (c *Coordinator) ReserveInventory(ctx context.Context, token string, items []ports.ItemInput) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.policy.Timeout)
	defer cancel()

	result, err := c.inventory.ReserveInventory(attemptCtx, token, toInventoryItems(items))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReservationFailed, asTransportError(err))
	}
	if !result.Available {
		return &InsufficientInventoryError{Message: result.Message}
	}
	return nil
}

// RecordOrder persists a pending order. Items without a checked price are recorded at zero.
// An order already stored under orderID is returned as is, so a replayed creation never resets its status.
func (c *Coordinator) RecordOrder(ctx context.Context, orderID string, input ports.CreateOrderInput, prices map[string]decimal.Decimal) (*domain.Order, error) {
	order, err := domain.NewOrder(orderID, input.CustomerID, toOrderItems(input.Items, prices), c.now())
	if err != nil {
		return nil, mapError(err)
	}
	existing, err := c.repo.GetByID(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	return c.repo.Save(ctx, order)
}

// NotifyOrderCreated publishes order_created and reports the publish error.
func (c *Coordinator) NotifyOrderCreated(ctx context.Context, order *domain.Order) error {
	if c.events == nil || order == nil {
		return nil
	}
	return c.events.Publish(ctx, domain.OrderCreated{
		BaseEvent: domain.BaseEvent{Timestamp: order.CreatedAt},
		OrderID:   order.ID,
		Items:     order.Items,
	})
}

// OrderID returns the id a new order will get. Keyed requests map to a stable id.
func (c *Coordinator) OrderID(input ports.CreateOrderInput) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return uuid.NewSHA1(orderNamespace, []byte(key)).String()
	}
	return c.newID()
}

// ReservationToken is the idempotency key, or the order id when the caller gave none.
func (c *Coordinator) ReservationToken(input ports.CreateOrderInput, orderID string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		return key
	}
	return orderID
}

// Drain waits for in-flight notifications to finish.
func (c *Coordinator) Drain() {
	c.pending.Wait()
}

func (c *Coordinator) checkWithRetry(ctx context.Context, token string, items []ports.ItemInput) (map[string]decimal.Decimal, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.CheckAttempts; attempt++ {
		prices, err := c.CheckInventory(ctx, token, items)
		if err == nil {
			return prices, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		c.logger.WarnContext(ctx, "inventory check attempt failed",
			slog.Int("attempt", attempt), slog.Int("max_attempts", c.policy.CheckAttempts), slog.String("error", err.Error()))
		if attempt == c.policy.CheckAttempts {
			break
		}
		if err := c.wait(ctx); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *Coordinator) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.policy.Backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(c.policy.Backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Coordinator) emit(ctx context.Context, event domain.Event) {
	if c.events == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		publishCtx, cancel := context.WithTimeout(detached, c.eventTimeout)
		defer cancel()
		if err := c.events.Publish(publishCtx, event); err != nil {
			c.logger.WarnContext(publishCtx, "order event not delivered",
				slog.String("event", event.EventName()), slog.String("error", err.Error()))
		}
	}()
}

// ValidateCreateInput applies the order invariants to a create request before any inventory call.
func ValidateCreateInput(input ports.CreateOrderInput) error {
	_, err := domain.NewOrder("pending", input.CustomerID, toOrderItems(input.Items, nil), time.Time{})
	return mapError(err)
}

func retryable(err error) bool {
	return errors.Is(err, ports.ErrTransportTimeout) || errors.Is(err, ports.ErrTransportFailure)
}

func asTransportError(err error) error {
	if errors.Is(err, ports.ErrTransportTimeout) || errors.Is(err, ports.ErrTransportFailure) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ports.ErrTransportTimeout, err)
	}
	return err
}

func toInventoryItems(items []ports.ItemInput) []ports.InventoryItem {
	out := make([]ports.InventoryItem, 0, len(items))
	for _, item := range items {
		out = append(out, ports.InventoryItem{ProductID: strings.TrimSpace(item.ProductID), Quantity: item.Quantity})
	}
	return out
}

func toOrderItems(items []ports.ItemInput, prices map[string]decimal.Decimal) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		out = append(out, domain.Item{ProductID: productID, Quantity: item.Quantity, Price: prices[productID]})
	}
	return out
}

var (
	_ ports.Service       = (*Coordinator)(nil)
	_ ports.CreationSteps = (*Coordinator)(nil)
)
