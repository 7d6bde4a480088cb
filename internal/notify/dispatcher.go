// Package notify fans business events out to customers' push devices.
//
// Dispatch is fire-and-forget: events are queued on a bounded channel and
// drained by a worker pool, so a slow or failing push gateway never blocks
// or fails the state change that produced the event. Callers must enqueue
// only after their own transaction has committed.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/albertomartinsanchez/breakfast-backend/internal/metrics"
	"github.com/albertomartinsanchez/breakfast-backend/internal/models"
)

// ErrTokenInvalid is returned by a Gateway when the device token is
// permanently dead and its registration should be deactivated.
var ErrTokenInvalid = errors.New("device token permanently invalid")

// Gateway is the external push provider primitive.
type Gateway interface {
	Send(ctx context.Context, deviceToken string, msg Message) error
}

// DeviceDirectory resolves customers to their active device registrations.
type DeviceDirectory interface {
	ActiveForCustomers(ctx context.Context, customerIDs []int) ([]models.PushDevice, error)
	Deactivate(ctx context.Context, deviceToken string) error
}

// Queue is the enqueue-side surface services depend on.
type Queue interface {
	Dispatch(ev Event) bool
}

const sendTimeout = 10 * time.Second

// Dispatcher owns the bounded event queue and the worker pool draining it.
type Dispatcher struct {
	gateway Gateway
	devices DeviceDirectory
	logger  *zap.Logger

	events  chan Event
	workers int
	wg      sync.WaitGroup

	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given worker count and queue
// capacity. Start must be called before Dispatch delivers anything.
func NewDispatcher(gateway Gateway, devices DeviceDirectory, logger *zap.Logger, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	return &Dispatcher{
		gateway: gateway,
		devices: devices,
		logger:  logger,
		events:  make(chan Event, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for ev := range d.events {
				d.process(ev)
			}
		}()
	}
}

// Stop closes the queue and waits for in-flight events to drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.events) })
	d.wg.Wait()
}

// Dispatch enqueues an event without blocking. When the queue is full the
// event is dropped and counted; notification loss is acceptable, stalling
// the caller is not.
func (d *Dispatcher) Dispatch(ev Event) bool {
	if len(ev.CustomerIDs) == 0 {
		return true
	}
	select {
	case d.events <- ev:
		return true
	default:
		metrics.NotificationsDropped.Inc()
		d.logger.Warn("notification queue full, dropping event",
			zap.String("event", string(ev.Type)),
			zap.Int("sale_id", ev.SaleID))
		return false
	}
}

func (d *Dispatcher) process(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	eventID := uuid.NewString()
	msg := buildMessage(ev)

	devices, err := d.devices.ActiveForCustomers(ctx, ev.CustomerIDs)
	if err != nil {
		d.logger.Error("failed to resolve devices for event",
			zap.String("event_id", eventID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
		return
	}
	if len(devices) == 0 {
		return
	}

	sent, failed := 0, 0
	for _, device := range devices {
		err := d.gateway.Send(ctx, device.DeviceToken, msg)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrTokenInvalid):
			failed++
			if derr := d.devices.Deactivate(ctx, device.DeviceToken); derr != nil {
				d.logger.Error("failed to deactivate dead device token",
					zap.String("event_id", eventID),
					zap.Error(derr))
			}
		default:
			failed++
			d.logger.Warn("push send failed",
				zap.String("event_id", eventID),
				zap.String("event", string(ev.Type)),
				zap.Int("customer_id", device.CustomerID),
				zap.Error(err))
		}
	}

	metrics.NotificationsSent.WithLabelValues(string(ev.Type), "ok").Add(float64(sent))
	metrics.NotificationsSent.WithLabelValues(string(ev.Type), "failed").Add(float64(failed))

	d.logger.Info("event dispatched",
		zap.String("event_id", eventID),
		zap.String("event", string(ev.Type)),
		zap.Int("sale_id", ev.SaleID),
		zap.Int("sent", sent),
		zap.Int("failed", failed))
}
