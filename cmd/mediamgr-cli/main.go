package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/core"
	"github.com/lisuiheng/mediamgr-go/logger"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
)

type options struct {
	SampleRate int      `long:"sample-rate" default:"16000" description:"Mixer sample rate"`
	Channels   int      `long:"channels" default:"1" description:"Mixer channel count"`
	SoundMode  string   `long:"sound-mode" default:"all" choice:"all" choice:"some" choice:"none" description:"Initial sound mode"`
	Exec       []string `short:"e" long:"exec" description:"Execute a command and exit (repeatable)"`
	Debug      bool     `short:"d" long:"debug" description:"Enable debug logging"`
}

// 模拟平台上预注册的音效
var builtinSounds = []core.SoundConfig{
	{Name: "ringtone", Loop: true, Priority: 1, Intensity: int(interfaces.IntensityLow)},
	{Name: "call", Loop: true, Mixing: true, InCall: true, CallMedia: true, Intensity: int(interfaces.IntensityLow)},
	{Name: "message", Mixing: true, InCall: true, Intensity: int(interfaces.IntensityMedium)},
	{Name: "alert", Mixing: true, Intensity: int(interfaces.IntensityHigh)},
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(1)
	}

	// 初始化日志
	logCfg := logger.Config{
		Level:   "warn",
		Outputs: []string{"stderr"},
	}
	if opts.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(opts); err != nil {
		logger.Error("CLI failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	log := logger.Logger()
	format := audio.Config{SampleRate: opts.SampleRate, Channels: opts.Channels, FrameDuration: 20}

	mixer := audio.NewMixer(format.SampleRate, format.Channels, log)
	defer mixer.Close()
	t := &tap{src: mixer}
	dev := audio.NewFakeDevice(format.SampleRate, format.Channels, true, nil, t, log)
	platform, err := audio.NewSimPlatform(mixer, dev, log)
	if err != nil {
		return err
	}

	sounds, err := core.LoadSounds(builtinSounds, format)
	if err != nil {
		return err
	}

	sh := newShell(nil, mixer.Playing, format, t, color.Output)
	mgrCfg := mediamgr.Config{
		SoundMode: mediamgr.SoundMode(opts.SoundMode),
		Sounds:    sounds,
	}
	mgr, err := mediamgr.New(mgrCfg, platform, sh.onCallStateChanged, log)
	if err != nil {
		return err
	}
	defer mgr.Close()
	sh.media = mgr
	mgr.RegisterRouteChangedHandler(sh.onRouteChanged)

	// 如果指定了命令，直接执行
	if len(opts.Exec) > 0 {
		for _, line := range opts.Exec {
			if err := sh.run(line); err != nil {
				break
			}
		}
		return nil
	}

	// 交互式模式
	startInteractive(sh, os.Stdin)
	return nil
}

func startInteractive(sh *shell, in io.Reader) {
	blue := color.New(color.FgBlue).SprintFunc()
	reader := bufio.NewReader(in)

	sh.help()
	for {
		fmt.Fprintf(sh.out, "\n%s ", blue("mediamgr>"))
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return
		}
		if errors.Is(sh.run(strings.TrimSpace(input)), errExit) {
			return
		}
	}
}
