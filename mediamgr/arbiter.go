package mediamgr

import "github.com/lisuiheng/mediamgr-go/pkg/interfaces"

type playbackMode int

const (
	playbackNone playbackMode = iota
	playbackMixing
	playbackExclusive
)

// currentPlayback 扫描正在播放的音效；遇到独占音效立即返回
func currentPlayback(sounds []*interfaces.Sound, isPlaying func(*interfaces.Sound) bool) playbackMode {
	mode := playbackNone
	for _, s := range sounds {
		if !isPlaying(s) {
			continue
		}
		if !s.Mixing {
			return playbackExclusive
		}
		mode = playbackMixing
	}
	return mode
}

// CanPlay 判断音效此刻是否允许开始播放：
// 强度超过阈值、通话中不允许的音效直接拒绝；Priority>0 无条件放行；
// 否则最多一个独占音效，或任意多个 mixing 音效同时播放。
func CanPlay(s *interfaces.Sound, sounds []*interfaces.Sound, isPlaying func(*interfaces.Sound) bool,
	call CallState, threshold interfaces.Intensity) bool {
	if s.Intensity > threshold {
		return false
	}
	if !s.InCall && call.Active() {
		return false
	}
	if s.Priority > 0 {
		return true
	}

	switch currentPlayback(sounds, isPlaying) {
	case playbackExclusive:
		return false
	case playbackMixing:
		return s.Mixing
	default:
		return true
	}
}
