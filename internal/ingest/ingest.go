// Package ingest implements heartbeat ingestion: request validation,
// source-address derivation, and the upsert-then-log write path.
package ingest

import (
	"context"
	"fmt"
	"time"

	"armbian-monitor-backend/internal/logs"
	"armbian-monitor-backend/internal/notification"
	"armbian-monitor-backend/internal/status"
	"armbian-monitor-backend/internal/store"
)

// Service coordinates validation and persistence of device heartbeats.
type Service struct {
	store   store.Store
	timeout time.Duration
	pool    *notification.WorkerPool

	// Now is the clock used for receipt timestamps; replaced in tests.
	Now func() time.Time
}

// NewService creates the ingestion service. pool may be nil when push
// notifications are disabled.
func NewService(s store.Store, offlineTimeout time.Duration, pool *notification.WorkerPool) *Service {
	if offlineTimeout <= 0 {
		offlineTimeout = status.DefaultOfflineTimeout
	}
	return &Service{
		store:   s,
		timeout: offlineTimeout,
		pool:    pool,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Result describes a successfully ingested heartbeat.
type Result struct {
	DeviceID    string
	IsNewDevice bool
	Timestamp   time.Time
	Message     string
}

// Ingest validates the request and applies it to storage. sourceIP is the
// address derived from the connection (see DeriveClientIP); it is used only
// when the body carries no ip_address. A *ValidationError return means
// nothing was written.
func (s *Service) Ingest(ctx context.Context, req *HeartbeatRequest, sourceIP string) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.Now()
	hb := s.normalize(req, sourceIP)

	applied, err := s.store.ApplyHeartbeat(ctx, hb, now)
	if err != nil {
		return nil, fmt.Errorf("apply heartbeat for %s: %w", hb.DeviceID, err)
	}

	res := &Result{
		DeviceID:  hb.DeviceID,
		Timestamp: now,
		Message:   "heartbeat received",
	}

	if applied.IsNew {
		res.IsNewDevice = true
		res.Message = "device registered"
		logs.Logger.WithField("device_id", hb.DeviceID).Info("new device registered")
		s.dispatch(notification.Event{DeviceID: hb.DeviceID, Kind: notification.EventNewDevice})
	} else if !status.Online(applied.PrevHeartbeat, now, s.timeout) {
		// Known device coming back after being classified offline.
		logs.Logger.WithField("device_id", hb.DeviceID).Info("device reconnected")
		s.dispatch(notification.Event{DeviceID: hb.DeviceID, Kind: notification.EventReconnected})
	}

	return res, nil
}

func (s *Service) dispatch(ev notification.Event) {
	if s.pool != nil {
		s.pool.Dispatch(ev)
	}
}

// normalize applies the defaulting rules: absent telemetry becomes 0
// (temperature stays nil), absent ip_address falls back to the derived
// source address, system_info is kept serialized verbatim.
func (s *Service) normalize(req *HeartbeatRequest, sourceIP string) store.Heartbeat {
	hb := store.Heartbeat{
		DeviceID:    req.DeviceID,
		CPUUsage:    deref(req.CPUUsage),
		MemoryUsage: deref(req.MemoryUsage),
		DiskUsage:   deref(req.DiskUsage),
		Temperature: req.Temperature,
		Uptime:      int64(deref(req.Uptime)),
	}

	if req.DeviceName != nil {
		hb.DeviceName = *req.DeviceName
	}
	if req.IPAddress != nil && *req.IPAddress != "" {
		hb.IPAddress = *req.IPAddress
	} else {
		hb.IPAddress = sourceIP
	}
	if req.MACAddress != nil {
		hb.MACAddress = *req.MACAddress
	}
	if len(req.SystemInfo) > 0 && string(req.SystemInfo) != "null" {
		hb.SystemInfo = string(req.SystemInfo)
	}

	return hb
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
