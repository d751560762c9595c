// Package browser provides the browser-automation engines the capture loop
// drives: go-rod (default) and chromedp.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/root4loot/chutie/pkg/chutie"
)

// Engine selects the automation backend.
type Engine string

const (
	EngineRod      Engine = "rod"
	EngineChromedp Engine = "chromedp"
)

// KeepAlive controls websocket pings on the DevTools connection. The zero
// value disables pings and read deadlines, so a long page load never trips
// a ping timeout.
type KeepAlive struct {
	Interval time.Duration // time between pings, 0 disables keep-alive
	Timeout  time.Duration // time to wait for any frame after a ping, 0 waits forever
}

// Enabled reports whether pings are sent.
func (k KeepAlive) Enabled() bool {
	return k.Interval > 0
}

// Options configures how the browser is launched.
type Options struct {
	Engine    Engine
	Bin       string // browser binary, empty to look one up
	Headless  bool
	NoSandbox bool
	Stealth   bool // rod only: create pages with go-rod/stealth
	KeepAlive KeepAlive
}

// DefaultOptions returns a headless rod configuration with keep-alive disabled.
func DefaultOptions() Options {
	return Options{
		Engine:   EngineRod,
		Headless: true,
	}
}

// ParseEngine validates an engine name.
func ParseEngine(name string) (Engine, error) {
	switch e := Engine(name); e {
	case EngineRod, EngineChromedp:
		return e, nil
	case "":
		return EngineRod, nil
	default:
		return "", fmt.Errorf("browser: unknown engine %q (want %q or %q)", name, EngineRod, EngineChromedp)
	}
}

// Launch starts a browser with the configured engine.
func Launch(ctx context.Context, opts Options) (chutie.Browser, error) {
	switch opts.Engine {
	case EngineRod, "":
		return LaunchRod(ctx, opts)
	case EngineChromedp:
		return LaunchChromedp(ctx, opts)
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", opts.Engine)
	}
}

// Launcher binds opts into a chutie.LaunchFunc.
func Launcher(opts Options) chutie.LaunchFunc {
	return func(ctx context.Context) (chutie.Browser, error) {
		return Launch(ctx, opts)
	}
}
