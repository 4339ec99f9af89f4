package hostsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
)

// Device is a backend device the host has seen at least once.
type Device struct {
	BackendDevice
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// Registry keeps the devices reported by backends in badger, keyed by role
// and ID.
type Registry struct {
	db  *badger.DB
	now func() time.Time
}

func NewRegistry(db *badger.DB, now func() time.Time) *Registry {
	return &Registry{
		db:  db,
		now: now,
	}
}

const devicePrefix = "host/devices/"

func deviceKey(dev BackendDevice) []byte {
	return []byte(fmt.Sprintf("%s%s/%s", devicePrefix, dev.Role, dev.ID))
}

// Record stores dev, keeping the first seen time of a known device.
func (r *Registry) Record(bdev BackendDevice) (Device, error) {
	var dev Device
	now := r.now()
	err := r.db.Update(func(txn *badger.Txn) error {
		key := deviceKey(bdev)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal device: %w", err)
			}
		}
		dev.BackendDevice = bdev
		if dev.FirstSeenAt.IsZero() {
			dev.FirstSeenAt = now
		}
		dev.LastSeenAt = now
		b, err := json.Marshal(dev)
		if err != nil {
			return fmt.Errorf("failed to marshal device: %w", err)
		}
		return txn.Set(key, b)
	})
	if err != nil {
		return Device{}, fmt.Errorf("failed to record device: %w", err)
	}
	return dev, nil
}

func (r *Registry) List() ([]Device, error) {
	var devices []Device
	err := r.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		prefix := []byte(devicePrefix)
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			var dev Device
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &dev)
			})
			if err != nil {
				return err
			}
			devices = append(devices, dev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}
