package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/core"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

var errExit = errors.New("exit")

// controller 交互命令用到的媒体管理器接口
type controller interface {
	core.MediaController
	RegisterMedia(s interfaces.Sound)
	UnregisterMedia(name string)
	Route() interfaces.Route
}

// tap 把混音输出转给设备，同时按需录下一段
type tap struct {
	src audio.Source

	mu        sync.Mutex
	recording bool
	buf       []int16
}

func (t *tap) Read(out []int16) {
	t.src.Read(out)
	t.mu.Lock()
	if t.recording {
		t.buf = append(t.buf, out...)
	}
	t.mu.Unlock()
}

func (t *tap) start() {
	t.mu.Lock()
	t.recording = true
	t.buf = t.buf[:0]
	t.mu.Unlock()
}

func (t *tap) stop() []int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
	pcm := t.buf
	t.buf = nil
	return pcm
}

type shell struct {
	media   controller
	playing func(name string) bool
	format  audio.Config
	tap     *tap
	out     io.Writer

	callState atomic.Int32

	green func(a ...interface{}) string
	red   func(a ...interface{}) string
}

func newShell(media controller, playing func(string) bool, format audio.Config, t *tap, out io.Writer) *shell {
	return &shell{
		media:   media,
		playing: playing,
		format:  format,
		tap:     t,
		out:     out,
		green:   color.New(color.FgGreen).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// onCallStateChanged 作为管理器的状态回调
func (s *shell) onCallStateChanged(state mediamgr.CallState) {
	s.callState.Store(int32(state))
	fmt.Fprintf(s.out, "\n%s call state -> %s\n", s.green("•"), state)
}

func (s *shell) onRouteChanged(route interfaces.Route) {
	fmt.Fprintf(s.out, "\n%s route -> %s\n", s.green("•"), route)
}

// run 执行一行命令；返回 errExit 表示退出
func (s *shell) run(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := parts[0], parts[1:]

	err := s.dispatch(cmd, args)
	switch {
	case errors.Is(err, errExit):
		return err
	case err != nil:
		fmt.Fprintf(s.out, "%s Error: %v\n", s.red("✗"), err)
	}
	return nil
}

func (s *shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "play", "pause", "stop":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <name>", cmd)
		}
		switch cmd {
		case "play":
			s.media.PlayMedia(args[0])
		case "pause":
			s.media.PauseMedia(args[0])
		default:
			s.media.StopMedia(args[0])
		}
		s.ok("%s %s", cmd, args[0])
	case "call":
		if len(args) != 1 {
			return errors.New("usage: call <normal|incall|invideocall|hold|resume>")
		}
		state, ok := mediamgr.ParseCallState(args[0])
		if !ok {
			return fmt.Errorf("unknown call state %q", args[0])
		}
		s.media.SetCallState(state)
		s.ok("requested call state %s", state)
	case "speaker", "headset", "bt":
		on, err := parseSwitch(cmd, args)
		if err != nil {
			return err
		}
		switch cmd {
		case "speaker":
			s.media.EnableSpeaker(on)
		case "headset":
			s.media.HeadsetConnected(on)
		default:
			s.media.BtDeviceConnected(on)
		}
		s.ok("%s %s", cmd, args[0])
	case "mode":
		if len(args) != 1 {
			return errors.New("usage: mode <all|some|none>")
		}
		mode := mediamgr.SoundMode(args[0])
		if _, err := mode.Threshold(); err != nil {
			return err
		}
		s.media.SetSoundMode(mode)
		s.ok("sound mode %s", mode)
	case "register":
		return s.register(args)
	case "unregister":
		if len(args) != 1 {
			return errors.New("usage: unregister <name>")
		}
		s.media.UnregisterMedia(args[0])
		s.ok("unregister %s", args[0])
	case "route":
		fmt.Fprintf(s.out, "  Route: %s\n", s.media.Route())
	case "status":
		s.status(args)
	case "dump":
		return s.dump(args)
	case "help":
		s.help()
	case "exit", "quit":
		fmt.Fprintln(s.out, "Exiting...")
		return errExit
	default:
		s.help()
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

// register <name> <file.wav|tone> [loop] [mixing] [incall] [callmedia] [priority=N] [intensity=N]
func (s *shell) register(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: register <name> <file.wav|tone> [loop] [mixing] [incall] [callmedia] [priority=N] [intensity=N]")
	}
	sc := core.SoundConfig{Name: args[0]}
	if args[1] != "tone" {
		sc.File = args[1]
	}
	for _, opt := range args[2:] {
		key, value, hasValue := strings.Cut(opt, "=")
		switch {
		case key == "loop" && !hasValue:
			sc.Loop = true
		case key == "mixing" && !hasValue:
			sc.Mixing = true
		case key == "incall" && !hasValue:
			sc.InCall = true
		case key == "callmedia" && !hasValue:
			sc.CallMedia = true
		case key == "priority" && hasValue:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid priority %q", value)
			}
			sc.Priority = n
		case key == "intensity" && hasValue:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid intensity %q", value)
			}
			sc.Intensity = n
		default:
			return fmt.Errorf("unknown option %q", opt)
		}
	}

	sounds, err := core.LoadSounds([]core.SoundConfig{sc}, s.format)
	if err != nil {
		return err
	}
	s.media.RegisterMedia(sounds[0])
	s.ok("registered %s", sc.Name)
	return nil
}

func (s *shell) status(names []string) {
	fmt.Fprintln(s.out, "\nCurrent Status:")
	fmt.Fprintf(s.out, "  Call: %s\n", mediamgr.CallState(s.callState.Load()))
	fmt.Fprintf(s.out, "  Route: %s\n", s.media.Route())
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s: playing=%t\n", name, s.playing(name))
	}
}

// dump <file.wav> [ms] 录下一段混音输出
func (s *shell) dump(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: dump <file.wav> [ms]")
	}
	ms := 1000
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid duration %q", args[1])
		}
		ms = n
	}

	s.tap.start()
	time.Sleep(time.Duration(ms) * time.Millisecond)
	pcm := s.tap.stop()

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	clip := &audio.Clip{
		Name:       args[0],
		SampleRate: s.format.SampleRate,
		Channels:   s.format.Channels,
		Samples:    pcm,
	}
	if err := audio.WriteWAV(f, clip); err != nil {
		return err
	}
	s.ok("wrote %d ms to %s", clip.Duration(), args[0])
	return nil
}

func (s *shell) ok(format string, a ...interface{}) {
	fmt.Fprintf(s.out, "%s %s\n", s.green("✓"), fmt.Sprintf(format, a...))
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  play|pause|stop <name>  - Control a registered sound")
	fmt.Fprintln(s.out, "  call <state>            - normal, incall, invideocall, hold, resume")
	fmt.Fprintln(s.out, "  speaker on|off          - Enable or disable the speakerphone")
	fmt.Fprintln(s.out, "  headset on|off          - Plug or unplug a wired headset")
	fmt.Fprintln(s.out, "  bt on|off               - Connect or disconnect a bluetooth device")
	fmt.Fprintln(s.out, "  mode all|some|none      - Set the sound mode")
	fmt.Fprintln(s.out, "  register <name> <wav>   - Register a sound (see 'register' for options)")
	fmt.Fprintln(s.out, "  unregister <name>       - Remove a sound")
	fmt.Fprintln(s.out, "  route                   - Show the active route")
	fmt.Fprintln(s.out, "  status [name...]        - Show call state, route and playback")
	fmt.Fprintln(s.out, "  dump <file.wav> [ms]    - Record the mixed output")
	fmt.Fprintln(s.out, "  exit/quit               - Exit the program")
	fmt.Fprintln(s.out, "  help                    - Show this help message")
}

func parseSwitch(cmd string, args []string) (bool, error) {
	if len(args) == 1 {
		switch args[0] {
		case "on":
			return true, nil
		case "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("usage: %s on|off", cmd)
}
