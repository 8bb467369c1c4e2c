package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lisuiheng/mediamgr-go/audio"
	"github.com/lisuiheng/mediamgr-go/mediamgr"
	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/lisuiheng/mediamgr-go/utils"
)

// MediaController 客户端用到的媒体管理器接口
type MediaController interface {
	PlayMedia(name string)
	PauseMedia(name string)
	StopMedia(name string)
	SetCallState(state mediamgr.CallState)
	EnableSpeaker(enable bool)
	HeadsetConnected(connected bool)
	BtDeviceConnected(connected bool)
	SetSoundMode(mode mediamgr.SoundMode)
}

var _ MediaController = (*mediamgr.Manager)(nil)

// ConnState 表示信令连接状态
type ConnState string

const (
	ConnStateIdle         ConnState = "idle"
	ConnStateConnecting   ConnState = "connecting"
	ConnStateConnected    ConnState = "connected"
	ConnStateDisconnected ConnState = "disconnected"
)

// Status 包含客户端状态信息
type Status struct {
	State     ConnState
	SessionID string
	Sending   bool
	Receiving bool
}

// message 信令消息，按 type 区分
type message struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state,omitempty"`
	Enable    *bool  `json:"enable,omitempty"`
	Connected *bool  `json:"connected,omitempty"`
	Action    string `json:"action,omitempty"`
	Name      string `json:"name,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Route     string `json:"route,omitempty"`
	Message   string `json:"message,omitempty"`
}

type outbound struct {
	data    []byte
	msgType interfaces.MessageType
}

// Client 通话会话客户端：把服务端控制消息转成媒体管理器请求，
// 把状态/路由回调上报给服务端，并在通话中收发 opus 音频帧。
type Client struct {
	config Config
	dial   func() (interfaces.TransportProtocol, error)
	media  MediaController
	logger *slog.Logger

	mu            sync.RWMutex
	transport     interfaces.TransportProtocol
	state         ConnState
	sessionID     string
	captureCancel context.CancelFunc

	audioCtrl     audio.Controller
	audioRecorder audio.Recorder
	audioDecoder  audio.Decoder
	audioPlayer   audio.Player

	sendChan  chan outbound
	backoff   utils.ReconnectStrategy
	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewClient 创建客户端；recorder/decoder/player 任一为 nil 时不处理通话音频
func NewClient(cfg Config, media MediaController, recorder audio.Recorder, decoder audio.Decoder, player audio.Player, log *slog.Logger) (*Client, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if media == nil {
		return nil, errors.New("media controller cannot be nil")
	}

	c := &Client{
		config:        cfg,
		media:         media,
		logger:        log,
		state:         ConnStateIdle,
		audioCtrl:     audio.NewController(true),
		audioRecorder: recorder,
		audioDecoder:  decoder,
		audioPlayer:   player,
		sendChan:      make(chan outbound, 100),
		backoff: utils.NewExponentialBackoff(
			cfg.System.Network.Reconnect.InitialDelay,
			cfg.System.Network.Reconnect.MaxDelay),
		closeChan: make(chan struct{}),
	}
	c.dial = func() (interfaces.TransportProtocol, error) {
		return NewProtocol(cfg, log)
	}
	return c, nil
}

// Run 连接服务端并处理消息，断线后按指数退避重连，直到 ctx 取消或 Close
func (c *Client) Run(ctx context.Context) error {
	c.logger.Info("Starting client main loop")
	defer c.logger.Info("Client main loop stopped")

	c.wg.Add(1)
	go c.sender(ctx)

	for {
		err := c.session(ctx)
		if c.stopping(ctx) {
			return nil
		}

		delay := c.backoff.NextDelay()
		c.logger.Warn("Connection lost, reconnecting", "error", err, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-c.closeChan:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.closeChan:
		return true
	default:
		return false
	}
}

// session 一次连接的生命周期，返回断开原因
func (c *Client) session(ctx context.Context) error {
	c.setState(ConnStateConnecting)

	transport, err := c.dial()
	if err != nil {
		c.setState(ConnStateDisconnected)
		return fmt.Errorf("failed to create transport: %w", err)
	}
	if err := transport.Connect(ctx); err != nil {
		c.setState(ConnStateDisconnected)
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
	defer c.disconnect(transport)

	if err := c.sendHello(transport); err != nil {
		return fmt.Errorf("failed to send hello message: %w", err)
	}
	c.backoff.Reset()
	c.setState(ConnStateConnected)
	c.logger.Info("Connected to server", "transport", transport.ProtocolType())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closeChan:
			return nil
		case msg, ok := <-transport.Receive():
			if !ok {
				return ErrConnectionLost
			}
			switch msg.Type {
			case interfaces.MsgText:
				if err := c.handleMessage(msg.Payload); err != nil {
					c.logger.Error("Failed to handle message", "error", err)
				}
			case interfaces.MsgBinary:
				if err := c.handleBinaryMessage(msg.Payload); err != nil {
					c.logger.Debug("Dropped audio frame", "error", err)
				}
			}
		}
	}
}

func (c *Client) disconnect(transport interfaces.TransportProtocol) {
	c.stopMedia()

	c.mu.Lock()
	if c.transport == transport {
		c.transport = nil
	}
	c.mu.Unlock()

	if err := transport.Close(); err != nil {
		c.logger.Debug("Failed to close transport", "error", err)
	}
	c.setState(ConnStateDisconnected)
}

func (c *Client) sendHello(transport interfaces.TransportProtocol) error {
	hello := map[string]interface{}{
		"type":      "hello",
		"version":   1,
		"device_id": c.config.System.DeviceID,
		"audio_params": map[string]interface{}{
			"format":         "opus",
			"sample_rate":    c.config.Audio.SampleRate,
			"channels":       c.config.Audio.Channels,
			"frame_duration": c.config.Audio.FrameDuration,
		},
	}
	data, err := json.Marshal(hello)
	if err != nil {
		return err
	}
	return transport.Send(data, interfaces.MsgText)
}

// sender 串行写出所有上行消息，未连接时丢弃
func (c *Client) sender(ctx context.Context) {
	defer c.wg.Done()
	c.logger.Debug("Starting sender")
	defer c.logger.Debug("Sender stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case out := <-c.sendChan:
			c.mu.RLock()
			transport := c.transport
			c.mu.RUnlock()
			if transport == nil {
				c.logger.Debug("Dropping outbound message", "type", out.msgType, "error", ErrNotConnected)
				continue
			}
			if err := transport.Send(out.data, out.msgType); err != nil {
				c.logger.Error("Failed to send message", "type", out.msgType, "error", err)
			}
		}
	}
}

// enqueue 非阻塞入队，可在媒体工作协程上调用
func (c *Client) enqueue(data []byte, msgType interfaces.MessageType) error {
	select {
	case c.sendChan <- outbound{data: data, msgType: msgType}:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) sendJSON(msg message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", "error", err)
		return
	}
	if err := c.enqueue(data, interfaces.MsgText); err != nil {
		c.logger.Warn("Dropping message", "type", msg.Type, "error", err)
	}
}

// OnCallStateChanged 媒体管理器状态回调：上报状态并开关通话音频
func (c *Client) OnCallStateChanged(state mediamgr.CallState) {
	c.sendJSON(message{Type: "call_state", State: state.String()})

	switch state {
	case mediamgr.CallStateInCall, mediamgr.CallStateInVideoCall, mediamgr.CallStateResume:
		c.startMedia()
	case mediamgr.CallStateHold, mediamgr.CallStateNormal:
		c.stopMedia()
	}
}

// OnRouteChanged 媒体管理器路由回调
func (c *Client) OnRouteChanged(route interfaces.Route) {
	c.sendJSON(message{Type: "route", Route: route.String()})
}

func (c *Client) startMedia() {
	c.audioCtrl.StartReceiving()
	c.audioCtrl.StartSending()

	if c.audioRecorder == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.captureCancel != nil || c.stopping(context.Background()) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.captureCancel = cancel

	c.wg.Add(1)
	go c.audioCapture(ctx)
}

func (c *Client) stopMedia() {
	c.audioCtrl.StopSending()
	c.audioCtrl.StopReceiving()

	c.mu.Lock()
	cancel := c.captureCancel
	c.captureCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// audioCapture 采集上行音频帧并发送，直到 ctx 取消
func (c *Client) audioCapture(ctx context.Context) {
	defer c.wg.Done()
	c.logger.Info("Starting audio capture")
	defer c.logger.Info("Audio capture stopped")

	frames := make(chan []byte, 100)
	// Close 需等到采集设备释放
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.audioRecorder.Record(ctx, frames); err != nil {
			c.logger.Error("Audio recording failed", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case data := <-frames:
			if !c.audioCtrl.IsSending() {
				continue
			}
			if err := c.enqueue(data, interfaces.MsgBinary); err != nil {
				c.logger.Warn("Failed to send audio data", "error", err)
			}
		}
	}
}

// handleBinaryMessage 下行 opus 帧，只在通话接收时播放
func (c *Client) handleBinaryMessage(data []byte) error {
	if !c.audioCtrl.IsReceiving() {
		return errors.New("not in audio receiving state")
	}
	if c.audioDecoder == nil || c.audioPlayer == nil {
		return errors.New("call audio disabled")
	}

	pcm, err := c.audioDecoder.Decode(data)
	if err != nil {
		return fmt.Errorf("audio decode failed: %w", err)
	}
	if err := c.audioPlayer.Play(pcm); err != nil {
		return fmt.Errorf("audio play failed: %w", err)
	}
	return nil
}

// handleMessage 处理服务端 JSON 控制消息
func (c *Client) handleMessage(data []byte) error {
	if len(data) == 0 {
		c.logger.Debug("Empty message received")
		return nil
	}

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Error("Failed to unmarshal message",
			"error", err,
			"raw_message", string(data),
		)
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return fmt.Errorf("%w: message type is missing", ErrInvalidMessage)
	}
	c.logger.Debug("Handling message", "type", msg.Type)

	switch msg.Type {
	case "hello":
		c.mu.Lock()
		c.sessionID = msg.SessionID
		c.mu.Unlock()
		c.logger.Info("Received hello response from server", "session_id", msg.SessionID)

	case "call":
		state, ok := mediamgr.ParseCallState(msg.State)
		if !ok {
			return fmt.Errorf("%w: unknown call state %q", ErrInvalidMessage, msg.State)
		}
		c.media.SetCallState(state)
		// 视频通话开始没有状态回调，这里直接打开通话音频
		if state == mediamgr.CallStateInVideoCall {
			c.startMedia()
		}

	case "speaker":
		if msg.Enable == nil {
			return fmt.Errorf("%w: speaker message missing enable", ErrInvalidMessage)
		}
		c.media.EnableSpeaker(*msg.Enable)

	case "headset":
		if msg.Connected == nil {
			return fmt.Errorf("%w: headset message missing connected", ErrInvalidMessage)
		}
		c.media.HeadsetConnected(*msg.Connected)

	case "bluetooth":
		if msg.Connected == nil {
			return fmt.Errorf("%w: bluetooth message missing connected", ErrInvalidMessage)
		}
		c.media.BtDeviceConnected(*msg.Connected)

	case "media":
		if msg.Name == "" {
			return fmt.Errorf("%w: media message missing name", ErrInvalidMessage)
		}
		switch msg.Action {
		case "play":
			c.media.PlayMedia(msg.Name)
		case "pause":
			c.media.PauseMedia(msg.Name)
		case "stop":
			c.media.StopMedia(msg.Name)
		default:
			return fmt.Errorf("%w: unknown media action %q", ErrInvalidMessage, msg.Action)
		}

	case "sound_mode":
		c.media.SetSoundMode(mediamgr.SoundMode(msg.Mode))

	case "error":
		c.logger.Error("Received error message",
			"session_id", msg.SessionID,
			"error", msg.Message)
		return fmt.Errorf("session %s error: %s", msg.SessionID, msg.Message)

	default:
		c.logger.Warn("Unknown message type received", "type", msg.Type)
	}
	return nil
}

// Status 获取当前状态
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:     c.state,
		SessionID: c.sessionID,
		Sending:   c.audioCtrl.IsSending(),
		Receiving: c.audioCtrl.IsReceiving(),
	}
}

func (c *Client) setState(newState ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != newState {
		c.logger.Info("State changed",
			"from", c.state,
			"to", newState)
		c.state = newState
	}
}

// Close 停止主循环、采集和发送协程
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.logger.Info("Closing client connection")
		// 与 startMedia 互斥，关闭后不再启动采集
		c.mu.Lock()
		close(c.closeChan)
		c.mu.Unlock()
		c.stopMedia()
	})

	c.wg.Wait()
	c.setState(ConnStateDisconnected)
	c.logger.Info("Client closed successfully")
	return nil
}
