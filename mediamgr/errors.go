package mediamgr

import "errors"

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrStartupTimeout   = errors.New("media manager worker not ready")
	ErrPlatformInit     = errors.New("platform init failed")
	ErrClosed           = errors.New("media manager closed")
	ErrQueueFull        = errors.New("command queue full")
	ErrUnknownMedia     = errors.New("unknown media")
	ErrUnsupportedRoute = errors.New("unsupported route")
	ErrUnknownSoundMode = errors.New("unknown sound mode")
)
