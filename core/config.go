package core

import (
	"time"

	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/logger"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
)

// Config 是守护进程配置结构，与 YAML 文件结构一致
type Config struct {
	System struct {
		DeviceID string `mapstructure:"device_id"`
		ClientID string `mapstructure:"client_id"`

		Network struct {
			Transport string           `mapstructure:"transport"`
			Websocket *WebsocketConfig `mapstructure:"websocket"`
			Reconnect struct {
				InitialDelay time.Duration `mapstructure:"initial_delay"`
				MaxDelay     time.Duration `mapstructure:"max_delay"`
			} `mapstructure:"reconnect"`
		} `mapstructure:"network"`
	} `mapstructure:"system"`

	Audio AudioConfig `mapstructure:"audio"`

	Media MediaConfig `mapstructure:"media"`

	Metrics struct {
		Listen string `mapstructure:"listen"`
	} `mapstructure:"metrics"`

	Logging logger.Config `mapstructure:"logging"`

	Debug bool `mapstructure:"debug"`
}

type WebsocketConfig struct {
	URL         string `mapstructure:"url"`
	AccessToken string `mapstructure:"access_token"`
}

// AudioConfig 通话音频格式与设备选择
type AudioConfig struct {
	audio.Config `mapstructure:",squash"`

	Platform string            `mapstructure:"platform"` // device/sim
	Capture  string            `mapstructure:"capture"`  // device/fake
	Routes   map[string]string `mapstructure:"routes"`   // 路由名 → 输出设备名
}

type MediaConfig struct {
	mediamgr.Config `mapstructure:",squash"`

	Sounds []SoundConfig `mapstructure:"sounds"`
}

// SoundConfig 一个预注册音效；File 为空时使用生成的提示音
type SoundConfig struct {
	Name      string `mapstructure:"name"`
	File      string `mapstructure:"file"`
	Loop      bool   `mapstructure:"loop"`
	Mixing    bool   `mapstructure:"mixing"`
	InCall    bool   `mapstructure:"in_call"`
	Intensity int    `mapstructure:"intensity"`
	Priority  int    `mapstructure:"priority"`
	CallMedia bool   `mapstructure:"call_media"`
}
