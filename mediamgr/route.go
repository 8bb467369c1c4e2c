package mediamgr

import "github.com/lisuiheng/mediamgr-go/pkg/interfaces"

// RouteEvent 触发路由重新决策的事件
type RouteEvent int

const (
	HeadsetPlugged RouteEvent = iota
	HeadsetUnplugged
	BtDeviceConnected
	BtDeviceDisconnected
	SpeakerEnableRequest
	SpeakerDisableRequest
	CallStart
	CallStop
	VideoCallStart
	VideoCallStop
)

func (e RouteEvent) String() string {
	switch e {
	case HeadsetPlugged:
		return "headset_plugged"
	case HeadsetUnplugged:
		return "headset_unplugged"
	case BtDeviceConnected:
		return "bt_connected"
	case BtDeviceDisconnected:
		return "bt_disconnected"
	case SpeakerEnableRequest:
		return "speaker_enable"
	case SpeakerDisableRequest:
		return "speaker_disable"
	case CallStart:
		return "call_start"
	case CallStop:
		return "call_stop"
	case VideoCallStart:
		return "video_call_start"
	case VideoCallStop:
		return "video_call_stop"
	default:
		return "unknown"
	}
}

// RouteState 路由决策的持久状态
type RouteState struct {
	PreferLoudspeaker     bool
	BtConnected           bool
	WiredHeadsetConnected bool
	CurrentRoute          interfaces.Route
	// RouteBeforeCall 通话开始时记录，结束时不会恢复
	RouteBeforeCall interfaces.Route
}

func newRouteState() RouteState {
	return RouteState{
		CurrentRoute:    interfaces.RouteUnknown,
		RouteBeforeCall: interfaces.RouteUnknown,
	}
}

// Decide 根据事件、当前标志位、通话状态和平台上报的当前路由，计算期望路由与更新后的状态。
// 纯函数，不访问平台。
func Decide(ev RouteEvent, st RouteState, call CallState, cur interfaces.Route) (interfaces.Route, RouteState) {
	wanted := cur

	switch ev {
	case HeadsetPlugged:
		wanted = interfaces.RouteHeadset
		st.WiredHeadsetConnected = true
		st.PreferLoudspeaker = false

	case HeadsetUnplugged:
		if call == CallStateInVideoCall {
			st.PreferLoudspeaker = true
		}
		switch {
		case cur == interfaces.RouteSpeaker:
			wanted = interfaces.RouteSpeaker
		case st.BtConnected:
			wanted = interfaces.RouteBluetooth
		case st.PreferLoudspeaker:
			wanted = interfaces.RouteSpeaker
		default:
			wanted = interfaces.RouteEarpiece
		}
		st.WiredHeadsetConnected = false

	case BtDeviceConnected:
		if call.Active() {
			wanted = interfaces.RouteBluetooth
		}
		st.BtConnected = true

	case BtDeviceDisconnected:
		switch {
		case st.WiredHeadsetConnected:
			wanted = interfaces.RouteHeadset
		case st.PreferLoudspeaker:
			wanted = interfaces.RouteSpeaker
		default:
			wanted = interfaces.RouteEarpiece
		}
		st.BtConnected = false

	case SpeakerEnableRequest:
		wanted = interfaces.RouteSpeaker
		st.PreferLoudspeaker = true

	case SpeakerDisableRequest:
		switch {
		case st.WiredHeadsetConnected:
			wanted = interfaces.RouteHeadset
		case st.BtConnected:
			wanted = interfaces.RouteBluetooth
		default:
			wanted = interfaces.RouteEarpiece
		}
		st.PreferLoudspeaker = false

	case CallStart:
		st.RouteBeforeCall = cur
		switch {
		case st.WiredHeadsetConnected:
			wanted = interfaces.RouteHeadset
		case st.BtConnected:
			wanted = interfaces.RouteBluetooth
		case st.PreferLoudspeaker:
			wanted = interfaces.RouteSpeaker
		default:
			wanted = interfaces.RouteEarpiece
		}

	case VideoCallStart:
		st.RouteBeforeCall = cur
		switch {
		case st.WiredHeadsetConnected:
			wanted = interfaces.RouteHeadset
		case st.BtConnected:
			wanted = interfaces.RouteBluetooth
		default:
			// 视频通话默认外放
			wanted = interfaces.RouteSpeaker
		}

	case CallStop, VideoCallStop:
		st.PreferLoudspeaker = false
		wanted = interfaces.RouteEarpiece
	}

	return wanted, st
}
