package mediamgr

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// CallState 通话状态。Resume 只作为请求出现，不是驻留状态。
type CallState int

const (
	CallStateNormal CallState = iota
	CallStateInCall
	CallStateInVideoCall
	CallStateHold
	CallStateResume
)

func (s CallState) String() string {
	switch s {
	case CallStateNormal:
		return "normal"
	case CallStateInCall:
		return "incall"
	case CallStateInVideoCall:
		return "invideocall"
	case CallStateHold:
		return "hold"
	case CallStateResume:
		return "resume"
	default:
		return "unknown"
	}
}

// ParseCallState 解析信令中的状态名
func ParseCallState(name string) (CallState, bool) {
	for s := CallStateNormal; s <= CallStateResume; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return CallStateNormal, false
}

// Active 通话进行中（语音或视频），Hold 不算
func (s CallState) Active() bool {
	return s == CallStateInCall || s == CallStateInVideoCall
}

const (
	eventInCall            = "incall"
	eventInVideoCall       = "invideocall"
	eventNormal            = "normal"
	eventHold              = "hold"
	eventResumeInCall      = "resume_incall"
	eventResumeInVideoCall = "resume_invideocall"
)

// callMachine 用 fsm 约束 Hold/Resume 的前置状态
type callMachine struct {
	fsm  *fsm.FSM
	prev CallState
}

func newCallMachine() *callMachine {
	m := &callMachine{prev: CallStateNormal}
	all := []string{
		CallStateNormal.String(),
		CallStateInCall.String(),
		CallStateInVideoCall.String(),
		CallStateHold.String(),
	}

	m.fsm = fsm.NewFSM(
		CallStateNormal.String(),
		fsm.Events{
			{Name: eventInCall, Src: all, Dst: CallStateInCall.String()},
			{Name: eventInVideoCall, Src: all, Dst: CallStateInVideoCall.String()},
			{Name: eventNormal, Src: all, Dst: CallStateNormal.String()},
			{Name: eventHold, Src: []string{CallStateInCall.String(), CallStateInVideoCall.String()}, Dst: CallStateHold.String()},
			{Name: eventResumeInCall, Src: []string{CallStateHold.String()}, Dst: CallStateInCall.String()},
			{Name: eventResumeInVideoCall, Src: []string{CallStateHold.String()}, Dst: CallStateInVideoCall.String()},
		},
		fsm.Callbacks{
			"enter_" + CallStateHold.String(): func(_ context.Context, e *fsm.Event) {
				m.prev, _ = ParseCallState(e.Src)
			},
		},
	)
	return m
}

func (m *callMachine) current() CallState {
	s, _ := ParseCallState(m.fsm.Current())
	return s
}

// previous 最近一次进入 Hold 之前的状态
func (m *callMachine) previous() CallState {
	return m.prev
}

// transition 请求切换到 req，返回请求是否被接受。
// 重复进入同一状态视为接受；前置状态不满足时返回 false。
func (m *callMachine) transition(ctx context.Context, req CallState) bool {
	var event string
	switch req {
	case CallStateInCall:
		event = eventInCall
	case CallStateInVideoCall:
		event = eventInVideoCall
	case CallStateNormal:
		event = eventNormal
	case CallStateHold:
		event = eventHold
	case CallStateResume:
		if m.prev == CallStateInVideoCall {
			event = eventResumeInVideoCall
		} else {
			event = eventResumeInCall
		}
	default:
		return false
	}

	err := m.fsm.Event(ctx, event)
	if err == nil {
		return true
	}
	var noTransition fsm.NoTransitionError
	return errors.As(err, &noTransition)
}
