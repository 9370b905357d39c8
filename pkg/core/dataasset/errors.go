package dataasset

import "errors"

// Errors returned by Manager operations.
var (
	ErrAssetNotFound           = errors.New("asset not found")
	ErrAssetExists             = errors.New("asset already exists")
	ErrAssetInactive           = errors.New("asset is not active")
	ErrAssetLocked             = errors.New("asset is locked")
	ErrNotOwner                = errors.New("not an asset owner")
	ErrInvalidAssetID          = errors.New("asset id doesn't match asset data")
	ErrInvalidRightType        = errors.New("invalid right type")
	ErrInvalidStatus           = errors.New("invalid certificate status")
	ErrCertificateNotFound     = errors.New("certificate not found")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrIDsExhausted            = errors.New("no more ids available")
	// ErrCorruptedRecord is returned by write paths that can't decode the
	// record they need to update.
	ErrCorruptedRecord = errors.New("corrupted record")
)
