package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const fakeFrameDuration = 10 * time.Millisecond

// FakeDevice 没有声卡时使用的音频设备：按 10ms 节拍产生静音采集帧、拉取输出数据。
// realtime 为 false 时不等待节拍，尽快处理。
type FakeDevice struct {
	sampleRate int
	channels   int
	realtime   bool
	encoder    Encoder
	source     Source
	logger     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	device string
}

var (
	_ Recorder = (*FakeDevice)(nil)
	_ Output   = (*FakeDevice)(nil)
)

// NewFakeDevice encoder 为 nil 时采集帧为小端 PCM；source 为 nil 时不做输出
func NewFakeDevice(sampleRate, channels int, realtime bool, encoder Encoder, source Source, logger *slog.Logger) *FakeDevice {
	return &FakeDevice{
		sampleRate: sampleRate,
		channels:   channels,
		realtime:   realtime,
		encoder:    encoder,
		source:     source,
		logger:     logger,
	}
}

func (d *FakeDevice) frameSamples() int {
	return d.sampleRate * d.channels * int(fakeFrameDuration/time.Millisecond) / 1000
}

// Record 每帧产生一段静音直到 ctx 取消
func (d *FakeDevice) Record(ctx context.Context, dataChan chan<- []byte) error {
	pcm := make([]int16, d.frameSamples())
	d.logger.Info("Fake audio recording started", "realtime", d.realtime)

	return d.tick(ctx, "record", func() error {
		var frame []byte
		if d.encoder != nil {
			data, err := d.encoder.Encode(pcm)
			if err != nil {
				return fmt.Errorf("failed to encode frame: %w", err)
			}
			frame = data
		} else {
			frame = int16ToBytes(pcm)
		}

		select {
		case dataChan <- frame:
		case <-ctx.Done():
		}
		return nil
	})
}

// Open 开始按节拍从 source 拉取数据，替换之前的输出协程
func (d *FakeDevice) Open(device string, lowLatency bool) error {
	if d.source == nil {
		return nil
	}
	d.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.device = device

	out := make([]int16, d.frameSamples())
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.tick(ctx, "playout", func() error {
			d.source.Read(out)
			return nil
		})
	}()
	d.logger.Debug("Fake audio output opened", "device", device, "low_latency", lowLatency)
	return nil
}

func (d *FakeDevice) Device() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device
}

func (d *FakeDevice) Close() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		d.wg.Wait()
	}
	return nil
}

// tick 以固定节拍调用 fn；处理跟不上节拍时告警并从当前时间重新计时
func (d *FakeDevice) tick(ctx context.Context, what string, fn func() error) error {
	next := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		next = next.Add(fakeFrameDuration)
		if err := fn(); err != nil {
			return err
		}
		if !d.realtime {
			continue
		}

		wait := time.Until(next)
		if wait < 0 {
			d.logger.Warn("Fake audio device not processing data fast enough",
				"thread", what,
				"behind", -wait)
			next = time.Now()
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
