package core

import "errors"

var (
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrConnectionLost      = errors.New("connection lost")
	ErrNotConnected        = errors.New("not connected to server")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrSendBufferFull      = errors.New("send buffer full")
)
