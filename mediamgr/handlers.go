package mediamgr

import (
	"time"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

// dispatch 在工作协程上处理一条命令，返回 false 表示退出循环
func (m *Manager) dispatch(cmd command) bool {
	start := time.Now()
	defer func() {
		m.metrics.handlerDurations.Observe(time.Since(start).Seconds())
	}()
	m.metrics.commandsTotal.WithLabelValues(cmd.name()).Inc()

	switch c := cmd.(type) {
	case exitCmd:
		return false
	case playMediaCmd:
		m.handlePlay(c.media)
	case pauseMediaCmd:
		m.handlePause(c.media)
	case stopMediaCmd:
		m.handleStop(c.media)
	case callStateCmd:
		m.handleCallState(c.state)
	case speakerCmd:
		if c.enable {
			m.updateRoute(SpeakerEnableRequest)
		} else {
			m.updateRoute(SpeakerDisableRequest)
		}
	case headsetCmd:
		if c.connected {
			m.updateRoute(HeadsetPlugged)
		} else {
			m.updateRoute(HeadsetUnplugged)
		}
	case btDeviceCmd:
		if c.connected {
			m.updateRoute(BtDeviceConnected)
		} else {
			m.updateRoute(BtDeviceDisconnected)
		}
	case registerCmd:
		m.handleRegister(c.sound)
	case unregisterCmd:
		m.handleUnregister(c.media)
	case setIntensityCmd:
		m.threshold = c.threshold
	case inspectCmd:
		c.fn()
		close(c.done)
	default:
		m.logger.Error("Unknown media command", "command", cmd.name())
	}
	return true
}

func (m *Manager) lookup(name string) (*interfaces.Sound, bool) {
	snd, ok := m.sounds.lookup(name)
	if !ok {
		m.logger.Error("Couldn't find media", "media", name, "error", ErrUnknownMedia)
	}
	return snd, ok
}

func (m *Manager) handlePlay(name string) {
	snd, ok := m.lookup(name)
	if !ok {
		return
	}
	m.logger.Debug("Want to play media", "media", name)

	if !CanPlay(snd, m.sounds.list(), m.platform.IsSoundPlaying, m.call.current(), m.threshold) {
		m.metrics.soundsRejected.Inc()
		m.logger.Debug("Media not allowed to play", "media", name, "call_state", m.call.current())
		return
	}

	if snd.Priority > 0 {
		m.logger.Debug("Stop other media", "media", name)
		m.stopAll(func(*interfaces.Sound) bool { return true })
	}

	if snd.IsCallMedia && !m.call.current().Active() {
		if err := m.platform.EnterCall(); err != nil {
			m.logger.Error("Failed to enter call audio mode", "media", name, "error", err)
		}
		m.updateRoute(CallStart)
	}

	if err := m.platform.PlaySound(snd); err != nil {
		m.logger.Error("Failed to play media", "media", name, "error", err)
		return
	}
	m.metrics.soundsStarted.Inc()
	m.logger.Debug("Play media", "media", name)
}

func (m *Manager) handlePause(name string) {
	snd, ok := m.lookup(name)
	if !ok {
		return
	}
	if err := m.platform.PauseSound(snd); err != nil {
		m.logger.Error("Failed to pause media", "media", name, "error", err)
	}
}

func (m *Manager) handleStop(name string) {
	snd, ok := m.lookup(name)
	if !ok {
		return
	}
	if err := m.platform.StopSound(snd); err != nil {
		m.logger.Error("Failed to stop media", "media", name, "error", err)
	}

	if snd.IsCallMedia && !m.call.current().Active() {
		if err := m.platform.ExitCall(); err != nil {
			m.logger.Error("Failed to exit call audio mode", "media", name, "error", err)
		}
		m.updateRoute(CallStop)
	}
}

func (m *Manager) handleRegister(s interfaces.Sound) {
	if s.Name == "" {
		m.logger.Error("Refusing to register media without a name")
		return
	}
	if old, ok := m.sounds.lookup(s.Name); ok {
		if err := m.platform.StopSound(old); err != nil {
			m.logger.Error("Failed to stop replaced media", "media", s.Name, "error", err)
		}
	}
	// 平台拒绝时保留旧描述
	if err := m.platform.RegisterSound(&s); err != nil {
		m.logger.Error("Failed to register media", "media", s.Name, "error", err)
		return
	}
	if _, replaced := m.sounds.register(s); replaced {
		m.logger.Debug("Replaced media", "media", s.Name)
		return
	}
	m.logger.Debug("Registered media", "media", s.Name, "count", m.sounds.len())
}

func (m *Manager) handleUnregister(name string) {
	snd, ok := m.sounds.unregister(name)
	if !ok {
		m.logger.Debug("Media not registered", "media", name)
		return
	}
	// 暂停中的音效也要停掉
	if err := m.platform.StopSound(snd); err != nil {
		m.logger.Error("Failed to stop unregistered media", "media", name, "error", err)
	}
	if err := m.platform.UnregisterSound(snd); err != nil {
		m.logger.Error("Failed to unregister media", "media", name, "error", err)
	}
	m.logger.Debug("Unregistered media", "media", name, "count", m.sounds.len())
}

// stopAll 停止所有满足 match 且正在播放的音效
func (m *Manager) stopAll(match func(*interfaces.Sound) bool) {
	for _, snd := range m.sounds.list() {
		if !match(snd) || !m.platform.IsSoundPlaying(snd) {
			continue
		}
		if err := m.platform.StopSound(snd); err != nil {
			m.logger.Error("Failed to stop media", "media", snd.Name, "error", err)
		}
	}
}

// enterCall 停掉通话中不允许的音效后进入通话音频模式
func (m *Manager) enterCall() {
	m.stopAll(func(s *interfaces.Sound) bool { return !s.InCall })
	if err := m.platform.EnterCall(); err != nil {
		m.logger.Error("Failed to enter call audio mode", "error", err)
	}
}

func (m *Manager) exitCall() {
	if err := m.platform.ExitCall(); err != nil {
		m.logger.Error("Failed to exit call audio mode", "error", err)
	}
}

func (m *Manager) handleCallState(req CallState) {
	var (
		event        RouteEvent
		changed      bool
		fireCallback bool
	)

	switch req {
	case CallStateInCall:
		m.call.transition(m.ctx, req)
		m.enterCall()
		event, changed, fireCallback = CallStart, true, true

	case CallStateInVideoCall:
		m.call.transition(m.ctx, req)
		m.enterCall()
		// 视频通话开始不触发状态回调
		event, changed, fireCallback = VideoCallStart, true, false

	case CallStateNormal:
		m.call.transition(m.ctx, req)
		m.exitCall()
		event, changed, fireCallback = CallStop, true, true

	case CallStateHold:
		if m.call.transition(m.ctx, req) {
			m.logger.Info("Putting call on hold", "previous", m.call.previous())
			event, changed, fireCallback = CallStop, true, true
		}

	case CallStateResume:
		if m.call.transition(m.ctx, req) {
			m.logger.Info("Resuming call", "state", m.call.current())
			m.enterCall()
			event, changed, fireCallback = CallStart, true, true
		}

	default:
		m.logger.Warn("Unknown call state requested", "state", int(req))
	}

	if !changed {
		m.logger.Debug("Call state request ignored", "requested", req, "current", m.call.current())
	}
	m.metrics.callState.Set(float64(m.call.current()))

	if changed {
		m.updateRoute(event)
	}
	if fireCallback {
		m.logger.Debug("Calling call state handler", "state", req)
		m.onStateChanged(req)
	}
}

// updateRoute 决策期望路由并下发给平台，随后以平台回读结果确认生效路由
func (m *Manager) updateRoute(ev RouteEvent) {
	cur := m.platform.CurrentRoute()
	wanted, next := Decide(ev, m.router, m.call.current(), cur)
	m.router = next

	m.logger.Info("Route decision",
		"event", ev,
		"wanted_route", wanted,
		"cur_route", cur)

	var err error
	if wanted != cur {
		err = m.enableRoute(wanted)
		if err != nil {
			m.logger.Error("Failed to enable route", "route", wanted, "error", err)
		}
	}

	cur = m.platform.CurrentRoute()
	if wanted != cur && err == nil {
		if !m.call.current().Active() {
			cur = wanted
		} else {
			m.metrics.routeMismatch.Inc()
			m.logger.Error("Route change didn't happen",
				"wanted", wanted,
				"current", cur)
		}
	}

	m.router.CurrentRoute = cur
	m.metrics.routeChanges.WithLabelValues(cur.String()).Inc()

	if h := m.onRouteChanged.Load(); h != nil {
		(*h)(cur)
	}
}

func (m *Manager) enableRoute(route interfaces.Route) error {
	switch route {
	case interfaces.RouteHeadset:
		return m.platform.EnableHeadset()
	case interfaces.RouteEarpiece:
		return m.platform.EnableEarpiece()
	case interfaces.RouteSpeaker:
		return m.platform.EnableSpeaker()
	case interfaces.RouteBluetooth:
		return m.platform.EnableBluetoothSCO()
	default:
		m.logger.Error("Unsupported route", "route", route, "error", ErrUnsupportedRoute)
		return nil
	}
}
