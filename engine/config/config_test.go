package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gfx/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 800, c.Window.Width)
	assert.Equal(t, 600, c.Window.Height)
	assert.Equal(t, renderer.PresentModeVSync, c.PresentMode())
	assert.Equal(t, 4, c.Loader.Workers)
	assert.Equal(t, slog.LevelInfo, c.Level())
	assert.Equal(t, renderer.DefaultClearColor, c.ClearColor())
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
log_level = "debug"
profiling = true

[window]
title = "demo"
width = 1280

[renderer]
present_mode = "uncapped"
acquire_timeout = "250ms"
clear_color = [0.0, 0.0, 0.0, 1.0]
`)
	c, err := Parse("oxy.toml", data)
	require.NoError(t, err)

	want := Default()
	want.LogLevel = "debug"
	want.Profiling = true
	want.Window.Title = "demo"
	want.Window.Width = 1280
	want.Renderer.PresentMode = "uncapped"
	want.Renderer.AcquireTimeout = Duration(250 * time.Millisecond)
	want.Renderer.ClearColor = [4]float64{0, 0, 0, 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, slog.LevelDebug, c.Level())
	assert.Equal(t, wgpu.Color{A: 1}, c.ClearColor())
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
window:
  height: 720
renderer:
  backend: headless
  frame_limit: 30
loader:
  workers: 8
`)
	c, err := Parse("oxy.yml", data)
	require.NoError(t, err)
	assert.Equal(t, 720, c.Window.Height)
	assert.Equal(t, 800, c.Window.Width)
	assert.Equal(t, "headless", c.Renderer.Backend)
	assert.Equal(t, 30.0, c.Renderer.FrameLimit)
	assert.Equal(t, 8, c.Loader.Workers)
	assert.Len(t, c.RendererOptions(), 4)

	empty, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), empty)
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		file string
		data string
	}{
		{"unknown key", "a.toml", "[window]\nwidht = 3\n"},
		{"unknown yaml key", "a.yaml", "renderer:\n  vsync: true\n"},
		{"bad present mode", "a.toml", "[renderer]\npresent_mode = \"mailbox\"\n"},
		{"bad backend", "a.yaml", "renderer:\n  backend: metal\n"},
		{"bad level", "a.toml", "log_level = \"loud\"\n"},
		{"bad duration", "a.toml", "[renderer]\nacquire_timeout = \"soon\"\n"},
		{"clear color range", "a.yaml", "renderer:\n  clear_color: [2, 0, 0, 1]\n"},
		{"zero workers", "a.yaml", "loader:\n  workers: 0\n"},
		{"zero width", "a.toml", "[window]\nwidth = 0\n"},
		{"format", "a.json", "{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.file, []byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "")
	c, path, err := FromEnv()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), c)

	file := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(file, []byte("[window]\ntitle = \"env\"\n"), 0o644))
	t.Setenv(EnvVar, file)
	c, path, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, file, path)
	assert.Equal(t, "env", c.Window.Title)

	t.Setenv(EnvVar, filepath.Join(t.TempDir(), "missing.toml"))
	_, _, err = FromEnv()
	assert.Error(t, err)
}

func TestWatchDeliversReloads(t *testing.T) {
	file := filepath.Join(t.TempDir(), "oxy.yaml")
	require.NoError(t, os.WriteFile(file, []byte("window:\n  title: first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := Watch(ctx, file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("window:\n  title: second\n"), 0o644))
	select {
	case c := <-updates:
		assert.Equal(t, "second", c.Window.Title)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWatchReadsTheFileOnceWritesSettle(t *testing.T) {
	file := filepath.Join(t.TempDir(), "oxy.yaml")
	require.NoError(t, os.WriteFile(file, []byte("window:\n  title: first\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates, err := Watch(ctx, file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file, []byte("window:\n  title: half\n"), 0o644))
	time.Sleep(reloadLag * 7 / 10)
	require.NoError(t, os.WriteFile(file, []byte("window:\n  title: final\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-updates:
			if c.Window.Title == "final" {
				return
			}
		case <-deadline:
			t.Fatal("the last write was never reloaded")
		}
	}
}
