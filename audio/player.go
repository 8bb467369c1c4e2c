package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PCMPlayer PortAudio实现的输出设备，回调中从 Source 拉取混音数据
type PCMPlayer struct {
	mu         sync.Mutex
	sampleRate int
	channels   int
	frameSize  int
	source     Source
	logger     *slog.Logger
	stream     *portaudio.Stream
	device     string
}

var _ Output = (*PCMPlayer)(nil)

// NewPCMPlayer 初始化PortAudio，流在 Open 时按设备名打开
func NewPCMPlayer(sampleRate, frameDuration, channels int, source Source, logger *slog.Logger) (*PCMPlayer, error) {
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	// 初始化PortAudio
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	return &PCMPlayer{
		sampleRate: sampleRate,
		channels:   channels,
		frameSize:  sampleRate * frameDuration / 1000,
		source:     source,
		logger:     logger,
	}, nil
}

// Open 关闭当前流并在指定设备上重新打开；lowLatency 用于通话
func (p *PCMPlayer) Open(device string, lowLatency bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeStream()

	dev, err := findOutputDevice(device)
	if err != nil {
		return err
	}

	var params portaudio.StreamParameters
	if lowLatency {
		params = portaudio.LowLatencyParameters(nil, dev)
	} else {
		params = portaudio.HighLatencyParameters(nil, dev)
	}
	params.Output.Channels = p.channels
	params.SampleRate = float64(p.sampleRate)
	params.FramesPerBuffer = p.frameSize
	if !lowLatency {
		params.FramesPerBuffer = p.frameSize * 3
	}

	stream, err := portaudio.OpenStream(params, p.audioCallback)
	if err != nil {
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	// 启动音频流
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	p.stream = stream
	p.device = dev.Name
	p.logger.Info("Audio output opened",
		"device", dev.Name,
		"low_latency", lowLatency,
		"latency", params.Output.Latency)
	return nil
}

// findOutputDevice 空名称使用系统默认输出
func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" || name == "default" {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default output: %v", ErrRouteUnavailable, err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxOutputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("%w: output device %q not found", ErrRouteUnavailable, name)
}

// audioCallback 交织 int16 输出
func (p *PCMPlayer) audioCallback(out []int16) {
	p.source.Read(out)
}

// closeStream 调用方持有 mu
func (p *PCMPlayer) closeStream() {
	if p.stream == nil {
		return
	}
	// 停止并关闭音频流
	if err := p.stream.Stop(); err != nil {
		p.logger.Error("failed to stop audio stream", "device", p.device, "error", err)
	}
	if err := p.stream.Close(); err != nil {
		p.logger.Error("failed to close audio stream", "device", p.device, "error", err)
	}
	p.stream = nil
}

// Close 关闭流；PortAudio 在 Terminate 前保持初始化
func (p *PCMPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeStream()
	return nil
}

// Terminate 释放 PortAudio，进程退出前调用
func (p *PCMPlayer) Terminate() error {
	p.Close()
	// 终止PortAudio
	return portaudio.Terminate()
}
