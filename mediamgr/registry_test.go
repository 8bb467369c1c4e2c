package mediamgr

import (
	"testing"

	"github.com/lisuiheng/mediamgr-go/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := newRegistry()

	_, replaced := r.register(interfaces.Sound{Name: "ringtone"})
	assert.False(t, replaced)
	r.register(interfaces.Sound{Name: "ping", Mixing: true})
	r.register(interfaces.Sound{Name: "alert"})

	names := func() []string {
		var out []string
		for _, s := range r.list() {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"ringtone", "ping", "alert"}, names())

	snd, replaced := r.register(interfaces.Sound{Name: "ping", Mixing: false, Priority: 3})
	assert.True(t, replaced)
	assert.Equal(t, 3, snd.Priority)
	assert.Equal(t, []string{"ringtone", "ping", "alert"}, names())

	got, ok := r.lookup("ping")
	require.True(t, ok)
	assert.False(t, got.Mixing)

	_, ok = r.unregister("ringtone")
	assert.True(t, ok)
	_, ok = r.unregister("ringtone")
	assert.False(t, ok)
	assert.Equal(t, 2, r.len())

	r.flush()
	assert.Equal(t, 0, r.len())
	assert.Empty(t, r.list())
}

func TestRegistryCopiesDescriptor(t *testing.T) {
	r := newRegistry()
	s := interfaces.Sound{Name: "ringtone", Intensity: interfaces.IntensityLow}
	r.register(s)

	s.Intensity = interfaces.IntensityHigh
	got, ok := r.lookup("ringtone")
	require.True(t, ok)
	assert.Equal(t, interfaces.IntensityLow, got.Intensity)
}
