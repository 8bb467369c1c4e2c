package mediamgr

import (
	"testing"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		event     RouteEvent
		state     RouteState
		call      CallState
		cur       interfaces.Route
		wanted    interfaces.Route
		wantState func(st RouteState) RouteState
	}{
		{
			name:   "headset plugged always wins",
			event:  HeadsetPlugged,
			state:  RouteState{PreferLoudspeaker: true, BtConnected: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteHeadset,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = true
				st.PreferLoudspeaker = false
				return st
			},
		},
		{
			name:   "headset unplugged keeps speaker",
			event:  HeadsetUnplugged,
			state:  RouteState{WiredHeadsetConnected: true, BtConnected: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = false
				return st
			},
		},
		{
			name:   "headset unplugged falls back to bluetooth",
			event:  HeadsetUnplugged,
			state:  RouteState{WiredHeadsetConnected: true, BtConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = false
				return st
			},
		},
		{
			name:   "headset unplugged prefers loudspeaker",
			event:  HeadsetUnplugged,
			state:  RouteState{WiredHeadsetConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = false
				return st
			},
		},
		{
			name:   "headset unplugged defaults to earpiece",
			event:  HeadsetUnplugged,
			state:  RouteState{WiredHeadsetConnected: true},
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = false
				return st
			},
		},
		{
			name:   "headset unplugged in video call switches to speaker",
			event:  HeadsetUnplugged,
			state:  RouteState{WiredHeadsetConnected: true},
			call:   CallStateInVideoCall,
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.WiredHeadsetConnected = false
				st.PreferLoudspeaker = true
				return st
			},
		},
		{
			name:   "bt connected in call forces bluetooth",
			event:  BtDeviceConnected,
			state:  RouteState{WiredHeadsetConnected: true},
			call:   CallStateInCall,
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = true
				return st
			},
		},
		{
			name:   "bt connected in video call forces bluetooth",
			event:  BtDeviceConnected,
			call:   CallStateInVideoCall,
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = true
				return st
			},
		},
		{
			name:   "bt connected outside call keeps route",
			event:  BtDeviceConnected,
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = true
				return st
			},
		},
		{
			name:   "bt connected on hold keeps route",
			event:  BtDeviceConnected,
			call:   CallStateHold,
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = true
				return st
			},
		},
		{
			name:   "bt disconnected falls back to headset",
			event:  BtDeviceDisconnected,
			state:  RouteState{BtConnected: true, WiredHeadsetConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteBluetooth,
			wanted: interfaces.RouteHeadset,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = false
				return st
			},
		},
		{
			name:   "bt disconnected prefers loudspeaker",
			event:  BtDeviceDisconnected,
			state:  RouteState{BtConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteBluetooth,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = false
				return st
			},
		},
		{
			name:   "bt disconnected defaults to earpiece",
			event:  BtDeviceDisconnected,
			state:  RouteState{BtConnected: true},
			cur:    interfaces.RouteBluetooth,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.BtConnected = false
				return st
			},
		},
		{
			name:   "speaker enable",
			event:  SpeakerEnableRequest,
			state:  RouteState{WiredHeadsetConnected: true},
			cur:    interfaces.RouteHeadset,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = true
				return st
			},
		},
		{
			name:   "speaker disable prefers headset",
			event:  SpeakerDisableRequest,
			state:  RouteState{PreferLoudspeaker: true, WiredHeadsetConnected: true, BtConnected: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteHeadset,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = false
				return st
			},
		},
		{
			name:   "speaker disable falls back to bluetooth",
			event:  SpeakerDisableRequest,
			state:  RouteState{PreferLoudspeaker: true, BtConnected: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = false
				return st
			},
		},
		{
			name:   "speaker disable defaults to earpiece",
			event:  SpeakerDisableRequest,
			state:  RouteState{PreferLoudspeaker: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = false
				return st
			},
		},
		{
			name:   "call start prefers headset",
			event:  CallStart,
			state:  RouteState{WiredHeadsetConnected: true, BtConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteHeadset,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteSpeaker
				return st
			},
		},
		{
			name:   "call start falls back to bluetooth",
			event:  CallStart,
			state:  RouteState{BtConnected: true, PreferLoudspeaker: true},
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteEarpiece
				return st
			},
		},
		{
			name:   "call start prefers loudspeaker",
			event:  CallStart,
			state:  RouteState{PreferLoudspeaker: true},
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteEarpiece
				return st
			},
		},
		{
			name:   "call start defaults to earpiece",
			event:  CallStart,
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteSpeaker
				return st
			},
		},
		{
			name:   "video call start prefers headset",
			event:  VideoCallStart,
			state:  RouteState{WiredHeadsetConnected: true, BtConnected: true},
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteHeadset,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteEarpiece
				return st
			},
		},
		{
			name:   "video call start falls back to bluetooth",
			event:  VideoCallStart,
			state:  RouteState{BtConnected: true},
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteBluetooth,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteEarpiece
				return st
			},
		},
		{
			name:   "video call start defaults to speaker",
			event:  VideoCallStart,
			cur:    interfaces.RouteEarpiece,
			wanted: interfaces.RouteSpeaker,
			wantState: func(st RouteState) RouteState {
				st.RouteBeforeCall = interfaces.RouteEarpiece
				return st
			},
		},
		{
			name:   "call stop forces earpiece",
			event:  CallStop,
			state:  RouteState{PreferLoudspeaker: true, BtConnected: true, RouteBeforeCall: interfaces.RouteSpeaker},
			call:   CallStateInCall,
			cur:    interfaces.RouteBluetooth,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = false
				return st
			},
		},
		{
			name:   "video call stop forces earpiece",
			event:  VideoCallStop,
			state:  RouteState{PreferLoudspeaker: true},
			cur:    interfaces.RouteSpeaker,
			wanted: interfaces.RouteEarpiece,
			wantState: func(st RouteState) RouteState {
				st.PreferLoudspeaker = false
				return st
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wanted, next := Decide(tt.event, tt.state, tt.call, tt.cur)
			assert.Equal(t, tt.wanted, wanted)
			assert.Equal(t, tt.wantState(tt.state), next)
		})
	}
}

func TestDecideIdempotent(t *testing.T) {
	start := RouteState{BtConnected: true, WiredHeadsetConnected: true}
	calls := []CallState{CallStateNormal, CallStateInCall, CallStateInVideoCall, CallStateHold}

	for ev := HeadsetPlugged; ev <= VideoCallStop; ev++ {
		for _, call := range calls {
			t.Run(ev.String()+"/"+call.String(), func(t *testing.T) {
				first, st1 := Decide(ev, start, call, interfaces.RouteEarpiece)
				second, st2 := Decide(ev, st1, call, first)
				assert.Equal(t, first, second)
				assert.Equal(t, st1.PreferLoudspeaker, st2.PreferLoudspeaker)
				assert.Equal(t, st1.BtConnected, st2.BtConnected)
				assert.Equal(t, st1.WiredHeadsetConnected, st2.WiredHeadsetConnected)
			})
		}
	}
}

func TestRouteNames(t *testing.T) {
	assert.Equal(t, "Speakerphone", interfaces.RouteSpeaker.String())
	assert.Equal(t, "LINE", interfaces.RouteLineout.String())
	assert.Equal(t, "Unknown", interfaces.Route(42).String())

	r, ok := interfaces.ParseRoute("bluetooth")
	assert.True(t, ok)
	assert.Equal(t, interfaces.RouteBluetooth, r)

	_, ok = interfaces.ParseRoute("hdmi")
	assert.False(t, ok)
}
