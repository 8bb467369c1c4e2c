package mediamgr

import (
	"fmt"
	"time"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultStartupTimeout = 10 * time.Second
	defaultQueueSize      = 256
)

// Config 媒体管理器配置
type Config struct {
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	SoundMode      SoundMode     `mapstructure:"sound_mode"`

	// Sounds 启动时直接写入注册表并交给平台 Init，不经过命令队列
	Sounds []interfaces.Sound `mapstructure:"-"`

	// Registerer 为空时指标照常计数但不注册
	Registerer prometheus.Registerer `mapstructure:"-"`
}

func (c Config) withDefaults() Config {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = defaultStartupTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.SoundMode == "" {
		c.SoundMode = SoundModeAll
	}
	return c
}

// SoundMode 用户可选的提示音模式
type SoundMode string

const (
	SoundModeAll  SoundMode = "all"
	SoundModeSome SoundMode = "some"
	SoundModeNone SoundMode = "none"
)

// 强度阈值：Intensity 大于阈值的音效不会播放
const (
	IntensityThresholdAll  = interfaces.IntensityHigh
	IntensityThresholdSome = interfaces.IntensityMedium
	IntensityThresholdNone = interfaces.IntensityLow
)

// Threshold 返回模式对应的强度阈值
func (m SoundMode) Threshold() (interfaces.Intensity, error) {
	switch m {
	case SoundModeAll:
		return IntensityThresholdAll, nil
	case SoundModeSome:
		return IntensityThresholdSome, nil
	case SoundModeNone:
		return IntensityThresholdNone, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSoundMode, string(m))
}
