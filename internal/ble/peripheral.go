package ble

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotStarted is returned by Notify before Start has registered the
// service.
var ErrNotStarted = errors.New("ble: peripheral not started")

// Listener receives peripheral events. Callbacks run on the BLE stack's
// goroutine.
type Listener interface {
	OnConnect()
	OnDisconnect()
	OnWrite(payload []byte)
}

// PeripheralOptions configures the advertised identity of the peripheral.
type PeripheralOptions struct {
	DeviceName         string
	ServiceUUID        string
	CharacteristicUUID string
}

// DefaultPeripheralOptions returns the identifiers the companion app expects.
func DefaultPeripheralOptions() PeripheralOptions {
	return PeripheralOptions{
		DeviceName:         DefaultDeviceName,
		ServiceUUID:        ServiceUUID,
		CharacteristicUUID: CharacteristicUUID,
	}
}

// Peripheral serves the control characteristic.
type Peripheral struct {
	adapter Adapter
	opts    PeripheralOptions

	mu   sync.Mutex
	char Characteristic
}

// NewPeripheral creates a peripheral on adapter. Empty options fall back to
// DefaultPeripheralOptions.
func NewPeripheral(adapter Adapter, opts PeripheralOptions) *Peripheral {
	def := DefaultPeripheralOptions()
	if opts.DeviceName == "" {
		opts.DeviceName = def.DeviceName
	}
	if opts.ServiceUUID == "" {
		opts.ServiceUUID = def.ServiceUUID
	}
	if opts.CharacteristicUUID == "" {
		opts.CharacteristicUUID = def.CharacteristicUUID
	}
	return &Peripheral{adapter: adapter, opts: opts}
}

// Start enables the adapter, registers the service with l as its event sink
// and begins advertising.
func (p *Peripheral) Start(l Listener) error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	p.adapter.SetConnectHandler(func(connected bool) {
		if connected {
			l.OnConnect()
		} else {
			l.OnDisconnect()
		}
	})

	char, err := p.adapter.AddService(ServiceConfig{
		ServiceUUID:        p.opts.ServiceUUID,
		CharacteristicUUID: p.opts.CharacteristicUUID,
		Value:              []byte{},
		OnWrite:            l.OnWrite,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.char = char
	p.mu.Unlock()

	if err := p.StartAdvertising(); err != nil {
		return err
	}

	slog.Info("[BLE] waiting for a client connection",
		"name", p.opts.DeviceName,
		"service", p.opts.ServiceUUID,
		"characteristic", p.opts.CharacteristicUUID)
	return nil
}

// Notify sets the characteristic value and notifies the central.
func (p *Peripheral) Notify(value []byte) error {
	p.mu.Lock()
	char := p.char
	p.mu.Unlock()

	if char == nil {
		return ErrNotStarted
	}
	if err := char.Write(value); err != nil {
		return fmt.Errorf("ble: notify: %w", err)
	}
	return nil
}

// StartAdvertising (re)starts advertising the control service.
func (p *Peripheral) StartAdvertising() error {
	err := p.adapter.Advertise(AdvertOptions{
		LocalName:    p.opts.DeviceName,
		ServiceUUIDs: []string{p.opts.ServiceUUID},
	})
	if err != nil {
		return fmt.Errorf("ble: advertise: %w", err)
	}
	return nil
}
