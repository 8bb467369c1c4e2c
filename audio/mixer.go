package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// voice 一个正在播放的音效；pos 只由 Read 推进
type voice struct {
	clip   *Clip
	pos    int
	paused atomic.Bool
	done   atomic.Bool
}

// Mixer 把音效和通话下行流混成一路 PCM。
// Start/Pause/Stop 可在任意协程调用，Read 只允许一个输出协程调用。
type Mixer struct {
	sampleRate int
	channels   int
	logger     *slog.Logger

	voices *xsync.MapOf[string, *voice]

	call    chan []int16
	pending []int16 // 上次未消费完的通话数据，仅 Read 访问

	done      chan struct{}
	closeOnce sync.Once
}

var _ Player = (*Mixer)(nil)
var _ Source = (*Mixer)(nil)

func NewMixer(sampleRate, channels int, logger *slog.Logger) *Mixer {
	return &Mixer{
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger,
		voices:     xsync.NewMapOf[string, *voice](),
		call:       make(chan []int16, 100),
		done:       make(chan struct{}),
	}
}

// Start 从头播放 clip，替换同名音效
func (m *Mixer) Start(name string, clip *Clip) error {
	if clip.SampleRate != m.sampleRate || clip.Channels != m.channels {
		return fmt.Errorf("%w: %s is %dHz/%dch, mixer is %dHz/%dch",
			ErrInvalidClip, name, clip.SampleRate, clip.Channels, m.sampleRate, m.channels)
	}
	m.voices.Store(name, &voice{clip: clip})
	return nil
}

// Resume 继续播放已暂停的音效，没有可恢复的音效时返回 false
func (m *Mixer) Resume(name string) bool {
	v, ok := m.voices.Load(name)
	if !ok || v.done.Load() || !v.paused.Load() {
		return false
	}
	v.paused.Store(false)
	return true
}

func (m *Mixer) Pause(name string) {
	if v, ok := m.voices.Load(name); ok {
		v.paused.Store(true)
	}
}

func (m *Mixer) Stop(name string) {
	m.voices.Delete(name)
}

// StopAll 停止所有音效，通话下行流不受影响
func (m *Mixer) StopAll() {
	m.voices.Clear()
}

// Playing 音效存在且未暂停、未结束
func (m *Mixer) Playing(name string) bool {
	v, ok := m.voices.Load(name)
	return ok && !v.paused.Load() && !v.done.Load()
}

// Play 写入一帧通话下行 PCM
func (m *Mixer) Play(data []int16) error {
	select {
	case m.call <- data:
		return nil
	case <-time.After(100 * time.Millisecond):
		return ErrBufferFull
	case <-m.done:
		return ErrPlayerClosed
	}
}

// Read 混音填充 out，样本饱和截断
func (m *Mixer) Read(out []int16) {
	acc := make([]int32, len(out))

	m.readCall(acc)

	m.voices.Range(func(name string, v *voice) bool {
		if v.paused.Load() || v.done.Load() {
			return true
		}
		samples := v.clip.Samples
		if len(samples) == 0 {
			v.done.Store(true)
		}
		for i := 0; i < len(acc) && !v.done.Load(); {
			n := copyAdd(acc[i:], samples[v.pos:])
			i += n
			v.pos += n
			if v.pos >= len(samples) {
				if !v.clip.Loop {
					v.done.Store(true)
					break
				}
				v.pos = 0
			}
		}
		if v.done.Load() {
			// 只删除自己，避免误删期间被替换的新音效
			m.voices.Compute(name, func(old *voice, loaded bool) (*voice, bool) {
				return old, loaded && old == v
			})
		}
		return true
	})

	for i, s := range acc {
		out[i] = clamp16(s)
	}
}

func (m *Mixer) readCall(acc []int32) {
	filled := 0
	for filled < len(acc) {
		if len(m.pending) == 0 {
			select {
			case data := <-m.call:
				m.pending = data
			default:
				return
			}
		}
		n := copyAdd(acc[filled:], m.pending)
		filled += n
		m.pending = m.pending[n:]
	}
}

func copyAdd(dst []int32, src []int16) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += int32(src[i])
	}
	return n
}

func clamp16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// Close 停止所有音效并拒绝后续下行数据
func (m *Mixer) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.voices.Clear()
	})
	return nil
}
