// audio/controller.go
package audio

import "sync"

// controller 实现媒体方向控制；半双工模式下收发互斥
type controller struct {
	mu          sync.Mutex
	fullDuplex  bool
	isSending   bool
	isReceiving bool
}

// NewController 创建音频控制器。通话使用全双工，按键对讲类场景使用半双工。
func NewController(fullDuplex bool) Controller {
	return &controller{fullDuplex: fullDuplex}
}

func (c *controller) StartSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isReceiving && !c.fullDuplex {
		return false
	}

	c.isSending = true
	return true
}

func (c *controller) StopSending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isSending = false
}

func (c *controller) StartReceiving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isSending && !c.fullDuplex {
		return false
	}

	c.isReceiving = true
	return true
}

func (c *controller) StopReceiving() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isReceiving = false
}

func (c *controller) IsSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSending
}

func (c *controller) IsReceiving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isReceiving
}
