package mediamgr

import (
	"fmt"
	"sync"
	"time"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

// fakePlatform 记录所有平台调用，路由切换默认立即生效
type fakePlatform struct {
	mu sync.Mutex

	route   interfaces.Route
	inCall  bool
	playing map[string]bool
	paused  map[string]bool
	ops     []string

	ignoreRoutes bool // 模拟平台不执行路由切换
	routeErr     error
	initDelay    time.Duration
	initErr      error
	initialized  bool
	released     bool
	registerErr  error
}

var _ interfaces.Platform = (*fakePlatform)(nil)

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		route:   interfaces.RouteEarpiece,
		playing: make(map[string]bool),
		paused:  make(map[string]bool),
	}
}

func (p *fakePlatform) record(format string, args ...any) {
	p.ops = append(p.ops, fmt.Sprintf(format, args...))
}

func (p *fakePlatform) Init(sounds []*interfaces.Sound) error {
	if p.initDelay > 0 {
		time.Sleep(p.initDelay)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initErr != nil {
		return p.initErr
	}
	p.initialized = true
	p.record("init:%d", len(sounds))
	return nil
}

func (p *fakePlatform) Release(sounds []*interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	p.record("release:%d", len(sounds))
	return nil
}

func (p *fakePlatform) CurrentRoute() interfaces.Route {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.route
}

func (p *fakePlatform) setRoute(r interfaces.Route) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("route:%s", r)
	if p.routeErr != nil {
		return p.routeErr
	}
	if !p.ignoreRoutes {
		p.route = r
	}
	return nil
}

func (p *fakePlatform) EnableHeadset() error      { return p.setRoute(interfaces.RouteHeadset) }
func (p *fakePlatform) EnableEarpiece() error     { return p.setRoute(interfaces.RouteEarpiece) }
func (p *fakePlatform) EnableSpeaker() error      { return p.setRoute(interfaces.RouteSpeaker) }
func (p *fakePlatform) EnableBluetoothSCO() error { return p.setRoute(interfaces.RouteBluetooth) }

func (p *fakePlatform) EnterCall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inCall = true
	p.record("enter_call")
	return nil
}

func (p *fakePlatform) ExitCall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inCall = false
	p.record("exit_call")
	return nil
}

func (p *fakePlatform) RegisterSound(s *interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("register:%s", s.Name)
	return p.registerErr
}

func (p *fakePlatform) UnregisterSound(s *interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playing, s.Name)
	delete(p.paused, s.Name)
	p.record("unregister:%s", s.Name)
	return nil
}

func (p *fakePlatform) PlaySound(s *interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing[s.Name] = true
	delete(p.paused, s.Name)
	p.record("play:%s", s.Name)
	return nil
}

func (p *fakePlatform) PauseSound(s *interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing[s.Name] {
		p.paused[s.Name] = true
		delete(p.playing, s.Name)
	}
	p.record("pause:%s", s.Name)
	return nil
}

func (p *fakePlatform) StopSound(s *interfaces.Sound) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.playing, s.Name)
	delete(p.paused, s.Name)
	p.record("stop:%s", s.Name)
	return nil
}

func (p *fakePlatform) IsSoundPlaying(s *interfaces.Sound) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing[s.Name]
}

func (p *fakePlatform) isPlaying(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing[name]
}

func (p *fakePlatform) playingNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var names []string
	for name := range p.playing {
		names = append(names, name)
	}
	return names
}

func (p *fakePlatform) isInCall() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inCall
}

func (p *fakePlatform) isReleased() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

func (p *fakePlatform) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePlatform) resetOps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}
