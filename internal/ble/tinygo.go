package ble

import (
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth in peripheral mode. It runs on
// Linux through BlueZ and on TinyGo boards with a supported BLE stack.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects adv.
	mu  sync.Mutex
	adv *bluetooth.Advertisement
}

// NewTinyGoAdapter creates an adapter on the default Bluetooth controller.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{adapter: bluetooth.DefaultAdapter}
}

func (a *TinyGoAdapter) Enable() error {
	return a.adapter.Enable()
}

func (a *TinyGoAdapter) SetConnectHandler(cb func(connected bool)) {
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		cb(connected)
	})
}

func (a *TinyGoAdapter) AddService(cfg ServiceConfig) (Characteristic, error) {
	svcUUID, err := bluetooth.ParseUUID(cfg.ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse service UUID: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(cfg.CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("ble: parse characteristic UUID: %w", err)
	}

	char := &tinyGoCharacteristic{}
	err = a.adapter.AddService(&bluetooth.Service{
		UUID: svcUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &char.handle,
				UUID:   charUUID,
				Value:  cfg.Value,
				Flags: bluetooth.CharacteristicReadPermission |
					bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicNotifyPermission |
					bluetooth.CharacteristicIndicatePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if cfg.OnWrite != nil {
						cfg.OnWrite(value)
					}
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ble: add service: %w", err)
	}
	return char, nil
}

func (a *TinyGoAdapter) Advertise(opts AdvertOptions) error {
	uuids := make([]bluetooth.UUID, 0, len(opts.ServiceUUIDs))
	for _, s := range opts.ServiceUUIDs {
		u, err := bluetooth.ParseUUID(s)
		if err != nil {
			return fmt.Errorf("ble: parse advertised UUID: %w", err)
		}
		uuids = append(uuids, u)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.adv == nil {
		a.adv = a.adapter.DefaultAdvertisement()
		err := a.adv.Configure(bluetooth.AdvertisementOptions{
			LocalName:    opts.LocalName,
			ServiceUUIDs: uuids,
		})
		if err != nil {
			a.adv = nil
			return fmt.Errorf("ble: configure advertisement: %w", err)
		}
	} else {
		// Some stacks refuse Start while an advertisement is registered.
		if err := a.adv.Stop(); err != nil {
			slog.Debug("[BLE] stop advertisement before restart", "error", err)
		}
	}

	if err := a.adv.Start(); err != nil {
		return fmt.Errorf("ble: start advertising: %w", err)
	}
	return nil
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

type tinyGoCharacteristic struct {
	handle bluetooth.Characteristic
}

func (c *tinyGoCharacteristic) Write(data []byte) error {
	_, err := c.handle.Write(data)
	return err
}
