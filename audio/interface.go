// audio/interface.go
package audio

import (
	"context"
	"errors"
)

var (
	ErrRouteUnavailable = errors.New("audio route unavailable")
	ErrUnknownSound     = errors.New("unknown sound")
	ErrInvalidClip      = errors.New("invalid audio clip")
	ErrBufferFull       = errors.New("audio buffer full")
	ErrPlayerClosed     = errors.New("audio player closed")
)

// Controller 定义通话媒体方向控制接口
type Controller interface {
	StartSending() bool
	StopSending()
	StartReceiving() bool
	StopReceiving()
	IsSending() bool
	IsReceiving() bool
}

// Recorder 定义音频采集接口，按帧写入 dataChan 直到 ctx 取消
type Recorder interface {
	Record(ctx context.Context, dataChan chan<- []byte) error
}

// Player 通话下行 PCM 播放接口
type Player interface {
	Play(data []int16) error
	Close() error
}

// Output 音频输出设备，从 Source 拉取交织的 PCM 数据
type Output interface {
	Open(device string, lowLatency bool) error
	Close() error
}

// Source 填充一段交织 PCM 输出
type Source interface {
	Read(out []int16)
}

type Encoder interface {
	Encode(pcm []int16) ([]byte, error)
}

type Decoder interface {
	Decode(data []byte) ([]int16, error)
}
