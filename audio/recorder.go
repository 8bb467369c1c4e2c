package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gen2brain/malgo"
)

// Config 通话音频格式
type Config struct {
	SampleRate    int `mapstructure:"sample_rate"`
	Channels      int `mapstructure:"channels"`
	FrameDuration int `mapstructure:"frame_duration"` // 毫秒
}

// FrameSamples 每帧交织样本数
func (c Config) FrameSamples() int {
	return c.SampleRate * c.Channels * c.FrameDuration / 1000
}

// recorder 麦克风采集，每帧 opus 编码后输出
type recorder struct {
	config  Config
	logger  *slog.Logger
	encoder Encoder
}

func NewRecorder(cfg Config, encoder Encoder, logger *slog.Logger) (Recorder, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder cannot be nil")
	}
	if cfg.FrameSamples() <= 0 {
		return nil, fmt.Errorf("invalid frame size: %d", cfg.FrameSamples())
	}
	return &recorder{
		config:  cfg,
		logger:  logger,
		encoder: encoder,
	}, nil
}

func (r *recorder) Record(ctx context.Context, dataChan chan<- []byte) error {
	frameSize := r.config.FrameSamples()

	// 初始化malgo上下文
	ctxMalgo, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		r.logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}
	defer func() {
		_ = ctxMalgo.Uninit()
		ctxMalgo.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(r.config.Channels)
	deviceConfig.SampleRate = uint32(r.config.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(frameSize / r.config.Channels)

	// 设备回调的周期不一定等于编码帧长，凑满一帧再编码
	var pending []int16
	captureCallback := func(_, pcmData []byte, _ uint32) {
		if ctx.Err() != nil {
			return
		}
		pending = append(pending, bytesToInt16(pcmData)...)
		for len(pending) >= frameSize {
			frame := pending[:frameSize]
			opusData, err := r.encoder.Encode(frame)
			pending = append(pending[:0], pending[frameSize:]...)
			if err != nil {
				r.logger.Error("OPUS encode failed", "error", err)
				continue
			}

			select {
			case dataChan <- opusData:
			case <-time.After(100 * time.Millisecond):
				r.logger.Warn("Audio channel blocked, dropping frame")
			case <-ctx.Done():
				return
			}
		}
	}

	device, err := malgo.InitDevice(ctxMalgo.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: captureCallback,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start audio device: %w", err)
	}
	defer device.Stop()

	r.logger.Info("Audio recording started",
		"sample_rate", r.config.SampleRate,
		"channels", r.config.Channels,
		"frame_size", frameSize)

	// 等待上下文取消
	<-ctx.Done()
	r.logger.Info("Audio recording stopped")
	return nil
}
