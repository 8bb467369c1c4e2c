package mediamgr

import "github.com/lisuiheng/mediamgr-go/pkg/interfaces"

// command 是投递给工作协程的消息。所有实现都是值类型，入队后调用方不再持有。
type command interface {
	name() string
}

type (
	playMediaCmd    struct{ media string }
	pauseMediaCmd   struct{ media string }
	stopMediaCmd    struct{ media string }
	callStateCmd    struct{ state CallState }
	speakerCmd      struct{ enable bool }
	headsetCmd      struct{ connected bool }
	btDeviceCmd     struct{ connected bool }
	registerCmd     struct{ sound interfaces.Sound }
	unregisterCmd   struct{ media string }
	setIntensityCmd struct{ threshold interfaces.Intensity }
	exitCmd         struct{}

	// inspectCmd 在工作协程上执行 fn，用于读取只属于工作协程的状态
	inspectCmd struct {
		fn   func()
		done chan struct{}
	}
)

func (playMediaCmd) name() string    { return "play_media" }
func (pauseMediaCmd) name() string   { return "pause_media" }
func (stopMediaCmd) name() string    { return "stop_media" }
func (callStateCmd) name() string    { return "call_state" }
func (speakerCmd) name() string      { return "enable_speaker" }
func (headsetCmd) name() string      { return "headset_connected" }
func (btDeviceCmd) name() string     { return "bt_device_connected" }
func (registerCmd) name() string     { return "register_media" }
func (unregisterCmd) name() string   { return "unregister_media" }
func (setIntensityCmd) name() string { return "set_intensity" }
func (exitCmd) name() string         { return "exit" }
func (inspectCmd) name() string      { return "inspect" }
