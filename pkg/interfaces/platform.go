// pkg/interfaces/platform.go
package interfaces

// Route 表示当前生效的物理音频输出
type Route int

const (
	RouteEarpiece Route = iota
	RouteSpeaker
	RouteHeadset
	RouteBluetooth
	RouteLineout
	RouteSPDIF
	RouteUnknown
)

func (r Route) String() string {
	switch r {
	case RouteEarpiece:
		return "Earpiece"
	case RouteSpeaker:
		return "Speakerphone"
	case RouteHeadset:
		return "Headset"
	case RouteBluetooth:
		return "Bluetooth"
	case RouteLineout:
		return "LINE"
	case RouteSPDIF:
		return "SPDIF"
	default:
		return "Unknown"
	}
}

// ParseRoute 解析配置中的路由名，同时接受 String() 的显示名
func ParseRoute(name string) (Route, bool) {
	switch name {
	case "earpiece", "Earpiece":
		return RouteEarpiece, true
	case "speaker", "Speakerphone":
		return RouteSpeaker, true
	case "headset", "Headset":
		return RouteHeadset, true
	case "bluetooth", "Bluetooth":
		return RouteBluetooth, true
	case "lineout", "LINE":
		return RouteLineout, true
	case "spdif", "SPDIF":
		return RouteSPDIF, true
	}
	return RouteUnknown, false
}

// Intensity 声音的打扰等级，数值越大越容易被静音
type Intensity int

const (
	IntensityLow    Intensity = 0
	IntensityMedium Intensity = 50
	IntensityHigh   Intensity = 100
)

// Sound 已注册的音效描述
type Sound struct {
	Name   string
	Handle any // 平台层持有的句柄，对控制环不透明

	Mixing      bool // 可与其他 mixing 音效同时播放
	InCall      bool // 通话中允许播放
	Intensity   Intensity
	Priority    int  // >0 表示独占抢占
	IsCallMedia bool // 播放/停止会带动通话音频模式
}

// Platform 是平台音频层（HAL）需要提供的能力。
//
// 除 CurrentRoute 外，所有方法只会在媒体管理器的工作协程上被调用，
// 实现无需自行加锁。CurrentRoute 还会被调用方直接查询，必须是并发安全的。
type Platform interface {
	Init(sounds []*Sound) error
	Release(sounds []*Sound) error

	CurrentRoute() Route
	EnableHeadset() error
	EnableEarpiece() error
	EnableSpeaker() error
	EnableBluetoothSCO() error

	EnterCall() error
	ExitCall() error

	// RegisterSound 新增或替换同名音效，平台需丢弃旧句柄的缓存和播放状态
	RegisterSound(s *Sound) error
	UnregisterSound(s *Sound) error

	PlaySound(s *Sound) error
	PauseSound(s *Sound) error
	StopSound(s *Sound) error
	IsSoundPlaying(s *Sound) bool
}
