package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/core"
	"github.com/lisuiheng/mediamgr-go/logger"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
)

func main() {
	// 定义命令行参数
	configPath := flag.String("c", "", "Path to config file (default searches ./config.yaml, ./config/config.yaml, /etc/mediamgr/config.yaml)")
	flag.Parse()

	// 加载配置
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := initLogger(cfg); err != nil {
		logger.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("Service runtime error", "error", err)
		os.Exit(1)
	}
	logger.Info("Service shutdown completed")
}

func run(cfg core.Config) error {
	log := logger.Logger()
	format := cfg.Audio.Config

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 音频输出
	mixer := audio.NewMixer(format.SampleRate, format.Channels, log)
	defer mixer.Close()

	var platform *audio.Platform
	switch cfg.Audio.Platform {
	case "device":
		player, err := audio.NewPCMPlayer(format.SampleRate, format.FrameDuration, format.Channels, mixer, log)
		if err != nil {
			return fmt.Errorf("failed to create audio player: %w", err)
		}
		defer player.Terminate()

		devices, err := core.ParseRoutes(cfg.Audio.Routes)
		if err != nil {
			return err
		}
		platform, err = audio.NewPlatform(mixer, player, devices, log)
		if err != nil {
			return fmt.Errorf("failed to create audio platform: %w", err)
		}
	case "sim", "":
		dev := audio.NewFakeDevice(format.SampleRate, format.Channels, true, nil, mixer, log)
		p, err := audio.NewSimPlatform(mixer, dev, log)
		if err != nil {
			return fmt.Errorf("failed to create audio platform: %w", err)
		}
		platform = p
	default:
		return fmt.Errorf("unknown audio platform %q", cfg.Audio.Platform)
	}

	sounds, err := core.LoadSounds(cfg.Media.Sounds, format)
	if err != nil {
		return err
	}

	// 客户端在管理器之后创建，回调通过指针转发
	var client atomic.Pointer[core.Client]
	onStateChanged := func(state mediamgr.CallState) {
		if c := client.Load(); c != nil {
			c.OnCallStateChanged(state)
		}
	}

	mgrCfg := cfg.Media.Config
	mgrCfg.Registerer = reg
	mgrCfg.Sounds = sounds
	mgr, err := mediamgr.New(mgrCfg, platform, onStateChanged, log)
	if err != nil {
		return fmt.Errorf("failed to start media manager: %w", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Error("Failed to close media manager", "error", err)
		}
	}()

	// 通话音频
	encoder, err := audio.NewOpusEncoder(format, audio.DefaultBitrate, log)
	if err != nil {
		return err
	}
	defer encoder.Close()
	decoder, err := audio.NewOpusDecoder(format, log)
	if err != nil {
		return err
	}
	defer decoder.Close()

	var recorder audio.Recorder
	switch cfg.Audio.Capture {
	case "fake":
		recorder = audio.NewFakeDevice(format.SampleRate, format.Channels, true, encoder, nil, log)
	case "device", "":
		recorder, err = audio.NewRecorder(format, encoder, log)
		if err != nil {
			return fmt.Errorf("failed to create audio recorder: %w", err)
		}
	default:
		return fmt.Errorf("unknown capture mode %q", cfg.Audio.Capture)
	}

	c, err := core.NewClient(cfg, mgr, recorder, decoder, mixer, log)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	client.Store(c)
	mgr.RegisterRouteChangedHandler(c.OnRouteChanged)
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("Failed to close client", "error", err)
		}
	}()

	// 指标
	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Serving metrics", "listen", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	// 设置信号处理
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("Starting media manager service",
		"platform", cfg.Audio.Platform,
		"route", platform.CurrentRoute(),
		"sounds", len(sounds))

	go func() {
		select {
		case <-ctx.Done():
		case <-mgr.Done():
			log.Error("Media manager stopped unexpectedly")
			cancel()
		}
	}()

	if err := c.Run(ctx); err != nil {
		return err
	}
	log.Info("Shutting down media manager service", "route", mgr.Route())
	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// loadConfig 加载配置文件
func loadConfig(configPath string) (core.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		// 使用命令行指定的路径
		v.SetConfigFile(configPath)
	} else {
		// 默认多路径搜索
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/mediamgr")
	}

	v.SetDefault("system.network.transport", "websocket")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.frame_duration", 20)
	v.SetDefault("audio.platform", "sim")
	v.SetDefault("audio.capture", "fake")
	v.SetDefault("media.sound_mode", string(mediamgr.SoundModeAll))
	v.SetDefault("logging.level", "info")

	// 环境变量覆盖，如 MEDIAMGR_AUDIO_PLATFORM
	v.SetEnvPrefix("MEDIAMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return core.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg core.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return core.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.Media.SoundMode.Threshold(); err != nil {
		return core.Config{}, err
	}
	for name := range cfg.Audio.Routes {
		if _, ok := interfaces.ParseRoute(name); !ok {
			return core.Config{}, fmt.Errorf("unknown route %q in audio.routes", name)
		}
	}

	return cfg, nil
}

// initLogger 初始化日志系统
func initLogger(cfg core.Config) error {
	logCfg := cfg.Logging

	// 调试模式覆盖配置
	if cfg.Debug {
		logCfg.Level = "debug"
		logCfg.Outputs = []string{"stdout"}
	}

	if err := logger.Init(logCfg); err != nil {
		return err
	}
	if cfg.Debug {
		logger.Debug("Debug mode enabled")
	}
	return nil
}
