package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	mu     sync.Mutex
	calls  []string
	sounds []interfaces.Sound
}

func (f *fakeController) record(format string, a ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, a...))
}

func (f *fakeController) PlayMedia(name string)                 { f.record("play:%s", name) }
func (f *fakeController) PauseMedia(name string)                { f.record("pause:%s", name) }
func (f *fakeController) StopMedia(name string)                 { f.record("stop:%s", name) }
func (f *fakeController) SetCallState(state mediamgr.CallState) { f.record("call:%s", state) }
func (f *fakeController) EnableSpeaker(enable bool)             { f.record("speaker:%t", enable) }
func (f *fakeController) HeadsetConnected(connected bool)       { f.record("headset:%t", connected) }
func (f *fakeController) BtDeviceConnected(connected bool)      { f.record("bt:%t", connected) }
func (f *fakeController) SetSoundMode(mode mediamgr.SoundMode)  { f.record("mode:%s", mode) }
func (f *fakeController) UnregisterMedia(name string)           { f.record("unregister:%s", name) }
func (f *fakeController) Route() interfaces.Route               { return interfaces.RouteSpeaker }

func (f *fakeController) RegisterMedia(s interfaces.Sound) {
	f.record("register:%s", s.Name)
	f.mu.Lock()
	f.sounds = append(f.sounds, s)
	f.mu.Unlock()
}

type constSource int16

func (c constSource) Read(out []int16) {
	for i := range out {
		out[i] = int16(c)
	}
}

var testFormat = audio.Config{SampleRate: 8000, Channels: 1, FrameDuration: 20}

func newTestShell() (*shell, *fakeController, *bytes.Buffer) {
	fc := &fakeController{}
	out := &bytes.Buffer{}
	sh := newShell(fc, func(name string) bool { return name == "ringtone" }, testFormat, &tap{src: constSource(7)}, out)
	return sh, fc, out
}

func TestShellDispatch(t *testing.T) {
	sh, fc, _ := newTestShell()

	lines := []string{
		"play ringtone",
		"pause ringtone",
		"stop ringtone",
		"call incall",
		"call resume",
		"speaker on",
		"headset off",
		"bt on",
		"mode some",
		"unregister alert",
		"",
	}
	for _, line := range lines {
		require.NoError(t, sh.run(line), line)
	}

	assert.Equal(t, []string{
		"play:ringtone",
		"pause:ringtone",
		"stop:ringtone",
		"call:incall",
		"call:resume",
		"speaker:true",
		"headset:false",
		"bt:true",
		"mode:some",
		"unregister:alert",
	}, fc.calls)
}

func TestShellRejectsBadArguments(t *testing.T) {
	sh, fc, out := newTestShell()

	for _, line := range []string{
		"play",
		"call ringing",
		"speaker maybe",
		"mode loud",
		"register only-name",
		"register x tone priority=high",
		"register x tone shuffle",
		"bogus",
	} {
		out.Reset()
		require.NoError(t, sh.run(line), line)
		assert.Contains(t, out.String(), "Error:", line)
	}
	assert.Empty(t, fc.calls)
}

func TestShellRegister(t *testing.T) {
	sh, fc, _ := newTestShell()

	require.NoError(t, sh.run("register chime tone loop mixing incall callmedia priority=2 intensity=50"))
	require.Len(t, fc.sounds, 1)

	s := fc.sounds[0]
	assert.Equal(t, "chime", s.Name)
	assert.True(t, s.Mixing)
	assert.True(t, s.InCall)
	assert.True(t, s.IsCallMedia)
	assert.Equal(t, 2, s.Priority)
	assert.Equal(t, interfaces.IntensityMedium, s.Intensity)

	clip, ok := s.Handle.(*audio.Clip)
	require.True(t, ok)
	assert.True(t, clip.Loop)
	assert.Equal(t, testFormat.SampleRate, clip.SampleRate)
}

func TestShellStatus(t *testing.T) {
	sh, _, out := newTestShell()

	sh.onCallStateChanged(mediamgr.CallStateHold)
	out.Reset()
	require.NoError(t, sh.run("status ringtone alert"))

	text := out.String()
	assert.Contains(t, text, "Call: hold")
	assert.Contains(t, text, "Route: Speakerphone")
	assert.Contains(t, text, "ringtone: playing=true")
	assert.Contains(t, text, "alert: playing=false")
}

func TestShellDump(t *testing.T) {
	sh, _, _ := newTestShell()
	path := filepath.Join(t.TempDir(), "out.wav")

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]int16, 80)
		for {
			select {
			case <-stop:
				return
			default:
			}
			sh.tap.Read(buf)
			time.Sleep(time.Millisecond)
		}
	}()
	require.NoError(t, sh.run("dump "+path+" 50"))
	close(stop)
	<-done

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	clip, err := audio.DecodeWAV(f)
	require.NoError(t, err)
	assert.Equal(t, testFormat.SampleRate, clip.SampleRate)
	require.NotEmpty(t, clip.Samples)
	for _, v := range clip.Samples {
		require.Equal(t, int16(7), v)
	}
}

func TestShellExit(t *testing.T) {
	sh, _, _ := newTestShell()
	assert.ErrorIs(t, sh.run("quit"), errExit)

	var out bytes.Buffer
	sh.out = &out
	startInteractive(sh, strings.NewReader("route\nexit\nplay never\n"))
	assert.Contains(t, out.String(), "Route: Speakerphone")
	assert.Contains(t, out.String(), "Exiting...")
}
