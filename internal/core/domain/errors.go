package domain

import "errors"

var (
	ErrNotConnected      = errors.New("not connected")
	ErrAdapterNotReady   = errors.New("data transport not ready")
	ErrOutOfOrderFrame   = errors.New("out-of-order frame")
	ErrReassemblyTimeout = errors.New("reassembly buffer timed out")
	ErrCleanedUp         = errors.New("provider already cleaned up")
)
