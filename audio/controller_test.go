package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestControllerHalfDuplex(t *testing.T) {
	c := NewController(false)

	assert.True(t, c.StartSending())
	assert.False(t, c.StartReceiving())
	assert.False(t, c.IsReceiving())

	c.StopSending()
	assert.True(t, c.StartReceiving())
	assert.False(t, c.StartSending())
	assert.True(t, c.IsReceiving())
	assert.False(t, c.IsSending())
}

func TestControllerFullDuplex(t *testing.T) {
	c := NewController(true)

	assert.True(t, c.StartSending())
	assert.True(t, c.StartReceiving())
	assert.True(t, c.IsSending())
	assert.True(t, c.IsReceiving())

	c.StopSending()
	c.StopReceiving()
	assert.False(t, c.IsSending())
	assert.False(t, c.IsReceiving())
}
