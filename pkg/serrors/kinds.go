package serrors

import "errors"

// Hardware kinds are fatal to the current session: the capture stream is
// gone or was never acquired, so the detection loop stops and the user is
// offered a retry. They are never silently retried.
var (
	// ErrPermissionDenied indicates the user (or platform policy) refused camera access.
	ErrPermissionDenied = NewKind("PERMISSION_DENIED")
	// ErrDeviceNotFound indicates no camera matching the constraints exists.
	ErrDeviceNotFound = NewKind("DEVICE_NOT_FOUND")
	// ErrDeviceBusy indicates the camera is held by another application.
	ErrDeviceBusy = NewKind("DEVICE_BUSY")
	// ErrConstraintsUnsatisfiable indicates the requested capture constraints
	// cannot be met by any available device.
	ErrConstraintsUnsatisfiable = NewKind("CONSTRAINTS_UNSATISFIABLE")
	// ErrSecurityBlocked indicates platform security policy blocked the capture.
	ErrSecurityBlocked = NewKind("SECURITY_BLOCKED")
	// ErrInsecureContext indicates the engine is not running in a secure
	// context and camera APIs are therefore unavailable.
	ErrInsecureContext = NewKind("INSECURE_CONTEXT")
	// ErrCameraUnavailable indicates the platform exposes no camera APIs at all.
	ErrCameraUnavailable = NewKind("CAMERA_UNAVAILABLE")
)

// Format kinds are recoverable: the capture session stays alive and the user
// can simply rescan.
var (
	// ErrInvalidURLFormat indicates an http payload whose path is not /scan/{token}/{hash}.
	ErrInvalidURLFormat = NewKind("INVALID_URL_FORMAT")
	// ErrInvalidWalletJSON indicates a wallet payload that is not valid JSON
	// or is missing required fields.
	ErrInvalidWalletJSON = NewKind("INVALID_WALLET_JSON_FORMAT")
	// ErrUnsupportedFormat indicates a payload matching none of the known grammars.
	ErrUnsupportedFormat = NewKind("UNSUPPORTED_FORMAT")
)

// ErrInternal indicates a programming or wiring error inside the engine.
var ErrInternal = NewKind("INTERNAL")

// hardwareKinds lists every kind that is fatal to the capture session.
var hardwareKinds = []Kind{ //nolint: gochecknoglobals
	ErrPermissionDenied,
	ErrDeviceNotFound,
	ErrDeviceBusy,
	ErrConstraintsUnsatisfiable,
	ErrSecurityBlocked,
	ErrInsecureContext,
	ErrCameraUnavailable,
}

// formatKinds lists every kind produced by payload classification.
var formatKinds = []Kind{ //nolint: gochecknoglobals
	ErrInvalidURLFormat,
	ErrInvalidWalletJSON,
	ErrUnsupportedFormat,
}

// IsHardware reports whether err belongs to the hardware error taxonomy.
func IsHardware(err error) bool {
	for _, k := range hardwareKinds {
		if errors.Is(err, k) {
			return true
		}
	}

	return false
}

// IsFormat reports whether err belongs to the payload format error taxonomy.
func IsFormat(err error) bool {
	for _, k := range formatKinds {
		if errors.Is(err, k) {
			return true
		}
	}

	return false
}
