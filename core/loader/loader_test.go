package loader_test

import (
	"errors"
	"testing"

	"materiel-tracker/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type stubFeature struct {
	name    string
	enabled bool
	loadErr error
	loaded  bool
}

func (f *stubFeature) Name() string    { return f.name }
func (f *stubFeature) IsEnabled() bool { return f.enabled }
func (f *stubFeature) Load(app fiber.Router) error {
	f.loaded = true
	return f.loadErr
}

func TestManager_LoadAll(t *testing.T) {
	app := fiber.New()

	t.Run("Skips Disabled", func(t *testing.T) {
		mgr := loader.NewManager()
		on := &stubFeature{name: "on", enabled: true}
		off := &stubFeature{name: "off", enabled: false}
		mgr.Register(on)
		mgr.Register(off)

		err := mgr.LoadAll(app)
		assert.NoError(t, err)
		assert.True(t, on.loaded)
		assert.False(t, off.loaded)
	})

	t.Run("Fails Fast", func(t *testing.T) {
		mgr := loader.NewManager()
		bad := &stubFeature{name: "bad", enabled: true, loadErr: errors.New("boom")}
		after := &stubFeature{name: "after", enabled: true}
		mgr.Register(bad)
		mgr.Register(after)

		err := mgr.LoadAll(app)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bad")
		assert.False(t, after.loaded)
	})
}
