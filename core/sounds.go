package core

import (
	"fmt"

	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

// 没有音频文件的音效使用 1 秒提示音
const (
	placeholderFreq     = 440
	placeholderDuration = 1000
)

// LoadSounds 按配置加载音效，返回可直接注册到媒体管理器的描述
func LoadSounds(cfgs []SoundConfig, format audio.Config) ([]interfaces.Sound, error) {
	sounds := make([]interfaces.Sound, 0, len(cfgs))
	seen := make(map[string]bool, len(cfgs))

	for _, sc := range cfgs {
		if sc.Name == "" {
			return nil, fmt.Errorf("sound without a name")
		}
		if seen[sc.Name] {
			return nil, fmt.Errorf("duplicate sound %q", sc.Name)
		}
		seen[sc.Name] = true

		var clip *audio.Clip
		if sc.File != "" {
			c, err := audio.LoadWAV(sc.File)
			if err != nil {
				return nil, fmt.Errorf("failed to load sound %q: %w", sc.Name, err)
			}
			if c.SampleRate != format.SampleRate || c.Channels != format.Channels {
				return nil, fmt.Errorf("%w: %q is %dHz/%dch, expected %dHz/%dch",
					audio.ErrInvalidClip, sc.Name, c.SampleRate, c.Channels, format.SampleRate, format.Channels)
			}
			clip = c
		} else {
			clip = audio.Tone(sc.Name, format.SampleRate, format.Channels, placeholderFreq, placeholderDuration)
		}
		clip.Name = sc.Name
		clip.Loop = sc.Loop

		sounds = append(sounds, interfaces.Sound{
			Name:        sc.Name,
			Handle:      clip,
			Mixing:      sc.Mixing,
			InCall:      sc.InCall,
			Intensity:   interfaces.Intensity(sc.Intensity),
			Priority:    sc.Priority,
			IsCallMedia: sc.CallMedia,
		})
	}
	return sounds, nil
}

// ParseRoutes 把配置中的路由名映射为路由
func ParseRoutes(routes map[string]string) (map[interfaces.Route]string, error) {
	devices := make(map[interfaces.Route]string, len(routes))
	for name, device := range routes {
		route, ok := interfaces.ParseRoute(name)
		if !ok {
			return nil, fmt.Errorf("unknown route %q", name)
		}
		devices[route] = device
	}
	return devices, nil
}
