package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hraban/opus"
)

const (
	// DefaultBitrate 通话语音码率
	DefaultBitrate = 32000

	maxOpusPacket = 4000
	maxOpusFrame  = 5760 // 48kHz 下 120ms
)

var errCodecClosed = errors.New("opus codec closed")

// validFrameDuration opus 只接受 2.5/5/10/20/40/60ms 帧
func validFrameDuration(ms int) bool {
	switch ms {
	case 5, 10, 20, 40, 60:
		return true
	}
	return false
}

// OpusDecoder OPUS音频解码器，可并发调用
type OpusDecoder struct {
	mu       sync.Mutex
	decoder  *opus.Decoder
	channels int
	logger   *slog.Logger
}

var _ Decoder = (*OpusDecoder)(nil)

// NewOpusDecoder 创建新的OPUS解码器
func NewOpusDecoder(cfg Config, logger *slog.Logger) (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(cfg.SampleRate, cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: cfg.Channels,
		logger:   logger,
	}, nil
}

// Decode 解码一个OPUS包
func (d *OpusDecoder) Decode(opusData []byte) ([]int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.decoder == nil {
		return nil, errCodecClosed
	}

	pcm := make([]int16, maxOpusFrame*d.channels)
	n, err := d.decoder.Decode(opusData, pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	return pcm[:n*d.channels], nil
}

func (d *OpusDecoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decoder = nil
}

// OpusEncoder OPUS音频编码器，可并发调用
type OpusEncoder struct {
	mu      sync.Mutex
	encoder *opus.Encoder
	logger  *slog.Logger
}

var _ Encoder = (*OpusEncoder)(nil)

// NewOpusEncoder 创建VoIP模式的OPUS编码器
func NewOpusEncoder(cfg Config, bitrate int, logger *slog.Logger) (*OpusEncoder, error) {
	if !validFrameDuration(cfg.FrameDuration) {
		return nil, fmt.Errorf("unsupported opus frame duration: %dms", cfg.FrameDuration)
	}

	enc, err := opus.NewEncoder(cfg.SampleRate, cfg.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("failed to set bitrate: %w", err)
	}

	return &OpusEncoder{
		encoder: enc,
		logger:  logger,
	}, nil
}

// Encode 编码一帧PCM
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.encoder == nil {
		return nil, errCodecClosed
	}

	data := make([]byte, maxOpusPacket)
	n, err := e.encoder.Encode(pcm, data)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}

	return data[:n], nil
}

func (e *OpusEncoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encoder = nil
}
