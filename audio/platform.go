package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/puzpuzpuz/xsync/v3"
)

// Platform 基于软件混音器的音频 HAL。
// 每个路由映射到一个输出设备名，切换路由或进出通话模式时重新打开输出。
type Platform struct {
	mu      sync.Mutex
	route   interfaces.Route
	inCall  bool
	devices map[interfaces.Route]string
	output  Output

	mixer  *Mixer
	clips  *xsync.MapOf[string, *Clip]
	logger *slog.Logger
}

var _ interfaces.Platform = (*Platform)(nil)

// NewPlatform 创建 HAL。devices 中没有的路由视为不可用；output 为 nil 时只混音不出声。
func NewPlatform(mixer *Mixer, output Output, devices map[interfaces.Route]string, logger *slog.Logger) (*Platform, error) {
	if mixer == nil {
		return nil, fmt.Errorf("mixer cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: no output devices configured", ErrRouteUnavailable)
	}
	return &Platform{
		route:   interfaces.RouteUnknown,
		devices: devices,
		output:  output,
		mixer:   mixer,
		clips:   xsync.NewMapOf[string, *Clip](),
		logger:  logger,
	}, nil
}

// NewSimPlatform 内存 HAL，四种可切换路由全部可用
func NewSimPlatform(mixer *Mixer, output Output, logger *slog.Logger) (*Platform, error) {
	devices := map[interfaces.Route]string{
		interfaces.RouteEarpiece:  "sim-earpiece",
		interfaces.RouteSpeaker:   "sim-speaker",
		interfaces.RouteHeadset:   "sim-headset",
		interfaces.RouteBluetooth: "sim-bluetooth",
	}
	return NewPlatform(mixer, output, devices, logger)
}

// Init 加载所有音效并打开默认路由（优先听筒，否则扬声器）
func (p *Platform) Init(sounds []*interfaces.Sound) error {
	for _, s := range sounds {
		if _, err := p.clip(s); err != nil {
			return err
		}
	}

	initial := interfaces.RouteEarpiece
	if _, ok := p.devices[initial]; !ok {
		initial = interfaces.RouteSpeaker
	}
	if err := p.enable(initial); err != nil {
		return fmt.Errorf("failed to open initial route: %w", err)
	}
	p.logger.Info("Audio platform initialized", "route", initial, "sounds", len(sounds))
	return nil
}

func (p *Platform) Release(sounds []*interfaces.Sound) error {
	p.mixer.StopAll()
	p.clips.Clear()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.route = interfaces.RouteUnknown
	if p.output != nil {
		if err := p.output.Close(); err != nil {
			return fmt.Errorf("failed to close output: %w", err)
		}
	}
	p.logger.Info("Audio platform released", "sounds", len(sounds))
	return nil
}

func (p *Platform) CurrentRoute() interfaces.Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.route
}

func (p *Platform) EnableHeadset() error      { return p.enable(interfaces.RouteHeadset) }
func (p *Platform) EnableEarpiece() error     { return p.enable(interfaces.RouteEarpiece) }
func (p *Platform) EnableSpeaker() error      { return p.enable(interfaces.RouteSpeaker) }
func (p *Platform) EnableBluetoothSCO() error { return p.enable(interfaces.RouteBluetooth) }

func (p *Platform) enable(route interfaces.Route) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	device, ok := p.devices[route]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRouteUnavailable, route)
	}
	if err := p.reopen(device); err != nil {
		return err
	}
	p.route = route
	p.logger.Debug("Audio route enabled", "route", route, "device", device)
	return nil
}

// reopen 调用方持有 mu
func (p *Platform) reopen(device string) error {
	if p.output == nil {
		return nil
	}
	if err := p.output.Open(device, p.inCall); err != nil {
		return fmt.Errorf("failed to open output %q: %w", device, err)
	}
	return nil
}

// EnterCall 切换到低延迟输出
func (p *Platform) EnterCall() error {
	return p.setCallMode(true)
}

func (p *Platform) ExitCall() error {
	return p.setCallMode(false)
}

func (p *Platform) setCallMode(inCall bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inCall == inCall {
		return nil
	}
	p.inCall = inCall
	if device, ok := p.devices[p.route]; ok {
		if err := p.reopen(device); err != nil {
			return err
		}
	}
	p.logger.Debug("Call audio mode changed", "in_call", inCall)
	return nil
}

func (p *Platform) InCall() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inCall
}

// RegisterSound 丢弃同名音效的旧数据并预加载新句柄
func (p *Platform) RegisterSound(s *interfaces.Sound) error {
	p.forget(s.Name)
	_, err := p.clip(s)
	return err
}

func (p *Platform) UnregisterSound(s *interfaces.Sound) error {
	p.forget(s.Name)
	return nil
}

// forget 停止同名播放（包括暂停中的）并清掉缓存
func (p *Platform) forget(name string) {
	p.mixer.Stop(name)
	p.clips.Delete(name)
}

func (p *Platform) PlaySound(s *interfaces.Sound) error {
	if p.mixer.Resume(s.Name) {
		return nil
	}
	clip, err := p.clip(s)
	if err != nil {
		return err
	}
	return p.mixer.Start(s.Name, clip)
}

func (p *Platform) PauseSound(s *interfaces.Sound) error {
	p.mixer.Pause(s.Name)
	return nil
}

func (p *Platform) StopSound(s *interfaces.Sound) error {
	p.mixer.Stop(s.Name)
	return nil
}

func (p *Platform) IsSoundPlaying(s *interfaces.Sound) bool {
	return p.mixer.Playing(s.Name)
}

// clip 解析并缓存音效数据：Handle 可以是 *Clip 或 WAV 文件路径
func (p *Platform) clip(s *interfaces.Sound) (*Clip, error) {
	if c, ok := p.clips.Load(s.Name); ok {
		return c, nil
	}

	var (
		c   *Clip
		err error
	)
	switch h := s.Handle.(type) {
	case *Clip:
		// 复制一份再改名，调用方的 Clip 保持不变
		cp := *h
		c = &cp
	case string:
		c, err = LoadWAV(h)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s has no clip", ErrUnknownSound, s.Name)
	}
	c.Name = s.Name
	p.clips.Store(s.Name, c)
	return c, nil
}
