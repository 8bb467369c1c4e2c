package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/lisuiheng/mediamgr-go/protocols/websocket"
)

// NewProtocol 根据配置创建对应的协议实例
func NewProtocol(config Config, log *slog.Logger) (interfaces.TransportProtocol, error) {
	switch config.System.Network.Transport {
	case "websocket", "":
		if config.System.Network.Websocket == nil {
			return nil, errors.New("websocket config missing")
		}
		return websocket.NewWebSocketProtocol(websocket.Config{
			URL:             config.System.Network.Websocket.URL,
			ProtocolVersion: 1,
			AccessToken:     config.System.Network.Websocket.AccessToken,
			DeviceID:        config.System.DeviceID,
			ClientID:        config.System.ClientID,
		}, log)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, config.System.Network.Transport)
	}
}
