// Package mediamgr 通话音频控制环：决定当前输出路由，仲裁音效播放，
// 并把来自任意协程的请求串行化到唯一的工作协程上执行。
package mediamgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

// CallStateChangedFunc 通话状态变化回调，参数为请求的状态。在工作协程上调用。
type CallStateChangedFunc func(state CallState)

// RouteChangedFunc 每次路由事件后以生效路由调用，即使路由没有变化。在工作协程上调用。
type RouteChangedFunc func(route interfaces.Route)

// Manager 媒体管理器。所有 Post 类方法只负责入队，立即返回。
type Manager struct {
	cfg      Config
	platform interfaces.Platform
	logger   *slog.Logger
	metrics  *Metrics
	ctx      context.Context

	queue     chan command
	closing   chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	onStateChanged CallStateChangedFunc
	onRouteChanged atomic.Pointer[RouteChangedFunc]

	// 以下字段只在工作协程中访问
	sounds     *registry
	router     RouteState
	call       *callMachine
	threshold  interfaces.Intensity
	releaseErr error
}

// New 启动工作协程并等待平台初始化完成。超时返回 ErrStartupTimeout。
func New(cfg Config, platform interfaces.Platform, onStateChanged CallStateChangedFunc, log *slog.Logger) (*Manager, error) {
	if platform == nil || onStateChanged == nil {
		return nil, fmt.Errorf("%w: platform and state handler are required", ErrInvalidArgument)
	}
	if log == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidArgument)
	}

	cfg = cfg.withDefaults()
	threshold, err := cfg.SoundMode.Threshold()
	if err != nil {
		return nil, err
	}

	for _, s := range cfg.Sounds {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: sound without a name", ErrInvalidArgument)
		}
	}

	m := &Manager{
		cfg:            cfg,
		platform:       platform,
		logger:         log,
		metrics:        NewMetrics(cfg.Registerer),
		ctx:            context.Background(),
		queue:          make(chan command, cfg.QueueSize),
		closing:        make(chan struct{}),
		stopped:        make(chan struct{}),
		onStateChanged: onStateChanged,
		sounds:         newRegistry(),
		router:         newRouteState(),
		call:           newCallMachine(),
		threshold:      threshold,
	}

	for _, s := range cfg.Sounds {
		m.sounds.register(s)
	}

	ready := make(chan error, 1)
	go m.run(ready)

	timer := time.NewTimer(cfg.StartupTimeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPlatformInit, err)
		}
	case <-timer.C:
		// 队列此时必为空；工作协程若稍后就绪会直接处理 exit 并释放平台
		close(m.closing)
		m.queue <- exitCmd{}
		m.logger.Error("Media manager worker not ready", "timeout", cfg.StartupTimeout)
		return nil, ErrStartupTimeout
	}

	m.logger.Info("Media manager started",
		"queue_size", cfg.QueueSize,
		"sound_mode", cfg.SoundMode)
	return m, nil
}

// Close 投递退出命令并等待工作协程结束。之后的投递都会被丢弃。
// 回调运行在工作协程上，不能在回调里直接调用 Close，需要另起协程。
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.logger.Info("Closing media manager")
		close(m.closing)
		m.queue <- exitCmd{}
		<-m.stopped
	})
	return m.releaseErr
}

// Done 工作协程退出后关闭
func (m *Manager) Done() <-chan struct{} {
	return m.stopped
}

// Metrics 返回管理器的指标集合
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

func (m *Manager) run(ready chan<- error) {
	defer close(m.stopped)

	if err := m.platform.Init(m.sounds.list()); err != nil {
		m.logger.Error("Failed to init media platform", "error", err)
		ready <- err
		return
	}
	m.logger.Debug("Media manager worker ready", "sounds", m.sounds.len())
	ready <- nil

	for cmd := range m.queue {
		m.metrics.queueDepth.Set(float64(len(m.queue)))
		if !m.dispatch(cmd) {
			break
		}
	}

	if err := m.platform.Release(m.sounds.list()); err != nil {
		m.logger.Error("Failed to release media platform", "error", err)
		m.releaseErr = err
	}
	m.sounds.flush()
	m.logger.Info("Media manager worker exiting")
}

func (m *Manager) post(cmd command) {
	select {
	case <-m.closing:
		m.drop(cmd, dropReasonClosed, ErrClosed)
		return
	default:
	}

	select {
	case m.queue <- cmd:
	default:
		m.drop(cmd, dropReasonFull, ErrQueueFull)
	}
}

func (m *Manager) drop(cmd command, reason string, err error) {
	m.metrics.commandsDropped.WithLabelValues(reason).Inc()
	m.logger.Error("Failed to post media command", "command", cmd.name(), "error", err)
}

// PlayMedia 请求播放已注册的音效
func (m *Manager) PlayMedia(name string) {
	m.post(playMediaCmd{media: name})
}

func (m *Manager) PauseMedia(name string) {
	m.post(pauseMediaCmd{media: name})
}

func (m *Manager) StopMedia(name string) {
	m.post(stopMediaCmd{media: name})
}

// SetCallState 请求通话状态切换，Resume 只在 Hold 时生效
func (m *Manager) SetCallState(state CallState) {
	m.post(callStateCmd{state: state})
}

func (m *Manager) EnableSpeaker(enable bool) {
	m.post(speakerCmd{enable: enable})
}

func (m *Manager) HeadsetConnected(connected bool) {
	m.post(headsetCmd{connected: connected})
}

func (m *Manager) BtDeviceConnected(connected bool) {
	m.post(btDeviceCmd{connected: connected})
}

// RegisterMedia 注册或覆盖同名音效，描述按值复制
func (m *Manager) RegisterMedia(s interfaces.Sound) {
	m.post(registerCmd{sound: s})
}

func (m *Manager) UnregisterMedia(name string) {
	m.post(unregisterCmd{media: name})
}

// SetSoundMode 切换提示音模式；未知模式只记录日志
func (m *Manager) SetSoundMode(mode SoundMode) {
	threshold, err := mode.Threshold()
	if err != nil {
		m.metrics.commandsDropped.WithLabelValues(dropReasonMode).Inc()
		m.logger.Error("Failed to set sound mode", "mode", mode, "error", err)
		return
	}
	m.logger.Debug("Set sound mode", "mode", mode, "threshold", threshold)
	m.post(setIntensityCmd{threshold: threshold})
}

// RegisterRouteChangedHandler 注册路由变化回调，传 nil 取消。立即生效，不经过队列。
func (m *Manager) RegisterRouteChangedHandler(fn RouteChangedFunc) {
	if fn == nil {
		m.onRouteChanged.Store(nil)
		return
	}
	m.onRouteChanged.Store(&fn)
}

// Route 直接查询平台当前路由，不经过队列
func (m *Manager) Route() interfaces.Route {
	return m.platform.CurrentRoute()
}

// inspect 在工作协程上执行 fn 并等待其完成；管理器已关闭时返回 false
func (m *Manager) inspect(fn func()) bool {
	done := make(chan struct{})
	select {
	case <-m.closing:
		return false
	case m.queue <- inspectCmd{fn: fn, done: done}:
	}
	select {
	case <-done:
		return true
	case <-m.stopped:
		return false
	}
}
