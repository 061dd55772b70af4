package device

import "errors"

// Sentinel errors for registry operations.
//
// These can be checked with errors.Is() for specific handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    writeNotFound(w, "device not found")
//	}
var (
	// ErrDeviceNotFound indicates the device does not exist, or does not
	// belong to the requesting owner when an owner-scoped lookup was used.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceExists indicates a device with the same ID already exists.
	ErrDeviceExists = errors.New("device already exists")

	// ErrTypeNotFound indicates the device type does not exist.
	ErrTypeNotFound = errors.New("device type not found")

	// ErrFirmwareNotFound indicates the firmware version does not exist.
	ErrFirmwareNotFound = errors.New("firmware not found")
)
