// Package ble exposes the control service as a BLE GATT peripheral. It
// registers one read/write/notify characteristic, forwards connection and
// write events to a listener and pushes notifications to the central.
package ble

// GATT identifiers of the control service.
const (
	ServiceUUID        = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"
	CharacteristicUUID = "beefcafe-36e1-4688-b7f5-00000000000b"

	// AltCharacteristicUUID is the characteristic used by older builds of
	// the companion app.
	AltCharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"

	DefaultDeviceName = "ESP32"
)

// Characteristic is a local GATT characteristic.
type Characteristic interface {
	// Write sets the value and notifies subscribed centrals.
	Write(data []byte) error
}

// ServiceConfig describes the single-characteristic service to register.
type ServiceConfig struct {
	ServiceUUID        string
	CharacteristicUUID string
	Value              []byte
	// OnWrite is called with every value a central writes.
	OnWrite func(data []byte)
}

// AdvertOptions configures the advertisement payload.
type AdvertOptions struct {
	LocalName    string
	ServiceUUIDs []string
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE stack.
	Enable() error
	// AddService registers a GATT service and returns its characteristic.
	AddService(cfg ServiceConfig) (Characteristic, error)
	// SetConnectHandler registers a callback for central connect and
	// disconnect events.
	SetConnectHandler(cb func(connected bool))
	// Advertise starts, or restarts, advertising.
	Advertise(opts AdvertOptions) error
}
