package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/model"
)

// EventKind identifies a device lifecycle event worth pushing to operators.
type EventKind string

const (
	EventNewDevice   EventKind = "new_device"
	EventReconnected EventKind = "reconnected"
)

// Event is one notification job.
type Event struct {
	DeviceID string
	Kind     EventKind
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logs.Logger.Debugf("notification worker %d started", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForEvent(ctx, ev)
		case <-ctx.Done():
			logs.Logger.Debugf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(ev Event) {
	wp.jobs <- ev
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// sendNotificationsForEvent fans one event out to every subscription.
func (wp *WorkerPool) sendNotificationsForEvent(ctx context.Context, ev Event) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		logs.Logger.Errorf("fetching subscriptions for %s: %v", ev.DeviceID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	label := ev.DeviceID
	var dev model.Device
	if err := wp.db.WithContext(ctx).
		Select("device_name").
		Where("device_id = ?", ev.DeviceID).
		First(&dev).Error; err != nil {
		logs.Logger.Errorf("fetching device %s: %v", ev.DeviceID, err)
	} else if dev.DeviceName != "" {
		label = dev.DeviceName
	}

	var message string
	switch ev.Kind {
	case EventNewDevice:
		message = fmt.Sprintf("New device %s registered", label)
	case EventReconnected:
		message = fmt.Sprintf("Device %s is back online", label)
	default:
		return
	}

	logs.Logger.Infof("sending %d notifications for device %s", len(subscriptions), ev.DeviceID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		logs.Logger.Errorf("sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// 410 means the browser dropped the subscription.
	if resp.StatusCode == http.StatusGone {
		logs.Logger.Infof("subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			logs.Logger.Errorf("deleting expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
