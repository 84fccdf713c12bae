package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"armbian-monitor-backend/internal/model"
)

// Store defines the transactional write operations of the device registry.
// Read paths query through DB() directly, the same way the handlers do.
type Store interface {
	DB() *gorm.DB
	ApplyHeartbeat(ctx context.Context, hb Heartbeat, now time.Time) (ApplyResult, error)
	UpdateDeviceFields(ctx context.Context, deviceID string, edit DeviceEdit, now time.Time) error
	DeleteDevice(ctx context.Context, deviceID string, now time.Time) error
	ListHeartbeats(ctx context.Context, deviceID string, f HistoryFilter) ([]model.HeartbeatLog, int64, error)
	LastHeartbeats(ctx context.Context) ([]*time.Time, error)
	PruneHeartbeatLogs(ctx context.Context, olderThan time.Time) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for read-path queries.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ApplyHeartbeat upserts the device row and appends one heartbeat-log entry.
// Both writes happen in one transaction: the latest-snapshot columns on the
// device and the durable time series never drift apart.
func (s *gormStore) ApplyHeartbeat(ctx context.Context, hb Heartbeat, now time.Time) (ApplyResult, error) {
	var result ApplyResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dev model.Device
		err := tx.Where("device_id = ?", hb.DeviceID).First(&dev).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result.IsNew = true
			if err := tx.Create(newDevice(hb, now)).Error; err != nil {
				return fmt.Errorf("create device %s: %w", hb.DeviceID, err)
			}
		case err != nil:
			return fmt.Errorf("lookup device %s: %w", hb.DeviceID, err)
		default:
			result.PrevHeartbeat = dev.LastHeartbeat
			updates := mergeUpdates(&dev, hb, now)
			if err := tx.Model(&model.Device{}).
				Where("device_id = ?", hb.DeviceID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("update device %s: %w", hb.DeviceID, err)
			}
		}

		entry := model.HeartbeatLog{
			DeviceID:    hb.DeviceID,
			CPUUsage:    hb.CPUUsage,
			MemoryUsage: hb.MemoryUsage,
			DiskUsage:   hb.DiskUsage,
			Temperature: hb.Temperature,
			Uptime:      hb.Uptime,
			CreatedAt:   now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append heartbeat log for %s: %w", hb.DeviceID, err)
		}
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}
	return result, nil
}

// newDevice builds the row for a first-seen device.
func newDevice(hb Heartbeat, now time.Time) *model.Device {
	name := hb.DeviceName
	if name == "" {
		name = hb.DeviceID
	}

	dev := &model.Device{
		DeviceID:      hb.DeviceID,
		DeviceName:    name,
		OrderNumber:   0,
		CPUUsage:      hb.CPUUsage,
		MemoryUsage:   hb.MemoryUsage,
		DiskUsage:     hb.DiskUsage,
		Temperature:   hb.Temperature,
		Uptime:        hb.Uptime,
		SystemInfo:    hb.SystemInfo,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastHeartbeat: &now,
	}
	if hb.IPAddress != "" {
		dev.IPAddress = &hb.IPAddress
	}
	if hb.MACAddress != "" {
		dev.MACAddress = &hb.MACAddress
	}
	return dev
}

// mergeUpdates builds the column map for a known device. Telemetry columns
// always update (the ingestion layer has already defaulted them); identity
// and network fields update only when the heartbeat actually carried them.
func mergeUpdates(dev *model.Device, hb Heartbeat, now time.Time) map[string]any {
	updates := map[string]any{
		"cpu_usage":      hb.CPUUsage,
		"memory_usage":   hb.MemoryUsage,
		"disk_usage":     hb.DiskUsage,
		"uptime":         hb.Uptime,
		"updated_at":     now,
		"last_heartbeat": now,
	}
	if hb.DeviceName != "" && hb.DeviceName != dev.DeviceName {
		updates["device_name"] = hb.DeviceName
	}
	if hb.IPAddress != "" {
		updates["ip_address"] = hb.IPAddress
	}
	if hb.MACAddress != "" {
		updates["mac_address"] = hb.MACAddress
	}
	if hb.SystemInfo != "" {
		updates["system_info"] = hb.SystemInfo
	}
	if hb.Temperature != nil {
		updates["temperature"] = *hb.Temperature
	}
	return updates
}

// UpdateDeviceFields applies an operator edit to one device. When the edit
// carries a request id, a dedup row is claimed first; replaying the same id
// fails with ErrDuplicateRequest and changes nothing.
func (s *gormStore) UpdateDeviceFields(ctx context.Context, deviceID string, edit DeviceEdit, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if edit.RequestID != "" {
			if err := claimEditRequest(tx, edit.RequestID, "device_update", deviceID, now); err != nil {
				return err
			}
		}

		var dev model.Device
		if err := tx.Where("device_id = ?", deviceID).First(&dev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeviceNotFound
			}
			return fmt.Errorf("lookup device %s: %w", deviceID, err)
		}

		updates := map[string]any{"updated_at": now}
		if edit.DeviceName != nil {
			updates["device_name"] = *edit.DeviceName
		}
		if edit.Remarks != nil {
			updates["remarks"] = *edit.Remarks
		}
		if edit.OrderNumber != nil {
			updates["order_number"] = *edit.OrderNumber
		}
		if edit.CreatedAt != nil {
			updates["created_at"] = *edit.CreatedAt
		}
		if edit.GroupID != nil {
			if *edit.GroupID == 0 {
				updates["group_id"] = nil
			} else {
				var group model.DeviceGroup
				if err := tx.First(&group, *edit.GroupID).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrGroupNotFound
					}
					return fmt.Errorf("lookup group %d: %w", *edit.GroupID, err)
				}
				updates["group_id"] = *edit.GroupID
			}
		}

		if err := tx.Model(&model.Device{}).
			Where("device_id = ?", deviceID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("update device %s: %w", deviceID, err)
		}
		return nil
	})
}

// claimEditRequest records the request id, failing if it was seen before.
func claimEditRequest(tx *gorm.DB, requestID, endpoint, deviceID string, now time.Time) error {
	var existing model.EditRequest
	err := tx.Where("request_id = ?", requestID).First(&existing).Error
	if err == nil {
		return ErrDuplicateRequest
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup edit request %s: %w", requestID, err)
	}

	record := model.EditRequest{
		RequestID: requestID,
		Endpoint:  endpoint,
		DeviceID:  deviceID,
		CreatedAt: now,
	}
	if err := tx.Create(&record).Error; err != nil {
		// A concurrent edit may have claimed the id between the lookup and
		// the insert; the PK violation is still a duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("record edit request %s: %w", requestID, err)
	}
	return nil
}

// DeleteDevice removes a device and its heartbeat-log rows, writing a backup
// row first. The backup insert is idempotent: if one already exists for the
// id it is kept as-is. The logs go with the device so a later re-registration
// under the same id starts with an empty history.
func (s *gormStore) DeleteDevice(ctx context.Context, deviceID string, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dev model.Device
		if err := tx.Where("device_id = ?", deviceID).First(&dev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeviceNotFound
			}
			return fmt.Errorf("lookup device %s: %w", deviceID, err)
		}

		var existing model.DeviceBackup
		err := tx.Where("device_id = ?", deviceID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			backup := model.DeviceBackup{
				DeviceID:    dev.DeviceID,
				DeviceName:  dev.DeviceName,
				Remarks:     dev.Remarks,
				OrderNumber: dev.OrderNumber,
				DeletedAt:   now,
			}
			if err := tx.Create(&backup).Error; err != nil {
				return fmt.Errorf("backup device %s: %w", deviceID, err)
			}
		} else if err != nil {
			return fmt.Errorf("lookup backup for %s: %w", deviceID, err)
		}

		if err := tx.Where("device_id = ?", deviceID).Delete(&model.HeartbeatLog{}).Error; err != nil {
			return fmt.Errorf("delete heartbeat logs for %s: %w", deviceID, err)
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&model.Device{}).Error; err != nil {
			return fmt.Errorf("delete device %s: %w", deviceID, err)
		}
		return nil
	})
}

// ListHeartbeats returns one page of a device's heartbeat history, newest
// first, plus the total row count for the filter.
func (s *gormStore) ListHeartbeats(ctx context.Context, deviceID string, f HistoryFilter) ([]model.HeartbeatLog, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 500 {
		f.PageSize = 50
	}

	q := s.db.WithContext(ctx).Model(&model.HeartbeatLog{}).Where("device_id = ?", deviceID)
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count heartbeats for %s: %w", deviceID, err)
	}

	var entries []model.HeartbeatLog
	if err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list heartbeats for %s: %w", deviceID, err)
	}
	return entries, total, nil
}

// LastHeartbeats returns every device's last_heartbeat for aggregate stats.
// The column is NULL for devices that have never reported, so the scan goes
// through sql.NullTime.
func (s *gormStore) LastHeartbeats(ctx context.Context) ([]*time.Time, error) {
	var raw []sql.NullTime
	if err := s.db.WithContext(ctx).Model(&model.Device{}).
		Pluck("last_heartbeat", &raw).Error; err != nil {
		return nil, fmt.Errorf("pluck last heartbeats: %w", err)
	}

	beats := make([]*time.Time, len(raw))
	for i, v := range raw {
		if v.Valid {
			t := v.Time
			beats[i] = &t
		}
	}
	return beats, nil
}

// PruneHeartbeatLogs deletes log rows older than the cutoff and reports how
// many were removed.
func (s *gormStore) PruneHeartbeatLogs(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&model.HeartbeatLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune heartbeat logs: %w", res.Error)
	}
	return res.RowsAffected, nil
}
