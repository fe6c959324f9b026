package store

import "errors"

var (
	// ErrNotInitialized indicates a Manager without a device.
	ErrNotInitialized = errors.New("store: no device bound")

	// ErrInvalidID indicates a store id at or beyond the directory capacity.
	ErrInvalidID = errors.New("store: id exceeds directory capacity")

	// ErrDuplicateStore indicates a create for an id that is already live.
	ErrDuplicateStore = errors.New("store: store already exists")

	// ErrNotFound indicates an operation on an id with no live store.
	ErrNotFound = errors.New("store: store not found")

	// ErrOutOfSpace indicates the free tail of the chip cannot hold the
	// block-rounded request.
	ErrOutOfSpace = errors.New("store: out of space")

	// ErrOverrun indicates a write past the store's reservation.
	ErrOverrun = errors.New("store: write exceeds reserved size")

	// ErrAddressOutOfRange indicates a computed address at or beyond the chip
	// byte count.
	ErrAddressOutOfRange = errors.New("store: address out of range")
)
