package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/root4loot/chutie/pkg/chutie"
	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/root4loot/goutils/log"
)

// Rod is a browser driven through go-rod over a WebSocket with explicit
// keep-alive settings.
type Rod struct {
	browser *rod.Browser
	lnch    *launcher.Launcher
	ws      *WebSocket
	stealth bool
}

// RodPage is a tab of a Rod browser.
type RodPage struct {
	page *rod.Page
}

// LaunchRod starts a local Chrome and connects to it.
func LaunchRod(ctx context.Context, opts Options) (*Rod, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	bin := opts.Bin
	if bin == "" {
		if path, found := launcher.LookPath(); found {
			bin = path
		}
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	log.Debugf("Launched browser at %s", controlURL)

	ws, err := DialWebSocket(ctx, controlURL, opts.KeepAlive)
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: dial %s: %w", controlURL, err)
	}

	b := rod.New().Client(cdp.New().Start(ws)).Context(ctx)
	if err := b.Connect(); err != nil {
		ws.Close()
		l.Kill()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return &Rod{browser: b, lnch: l, ws: ws, stealth: opts.Stealth}, nil
}

// NewPage opens a blank tab.
func (r *Rod) NewPage(ctx context.Context) (chutie.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if r.stealth {
		page, err = stealth.Page(r.browser.Context(ctx))
	} else {
		page, err = r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	return &RodPage{page: page}, nil
}

// Close shuts down Chrome and removes its user data dir.
func (r *Rod) Close() error {
	err := r.browser.Close()
	r.ws.Close()
	r.lnch.Cleanup()
	return err
}

// SetViewport emulates spec's size, mobile and orientation settings.
func (p *RodPage) SetViewport(ctx context.Context, spec viewport.Spec) error {
	page := p.page.Context(ctx)

	if err := page.SetViewport(deviceMetrics(spec)); err != nil {
		return err
	}
	return proto.EmulationSetTouchEmulationEnabled{Enabled: spec.IsMobile}.Call(page)
}

// Navigate loads url and waits for the load event.
func (p *RodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Screenshot captures the viewport, or the whole scrollable page when fullPage is set.
func (p *RodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, nil)
}

func (p *RodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *RodPage) Close() error {
	return p.page.Close()
}

func deviceMetrics(spec viewport.Spec) *proto.EmulationSetDeviceMetricsOverride {
	orientation := &proto.EmulationScreenOrientation{
		Type:  proto.EmulationScreenOrientationTypePortraitPrimary,
		Angle: 0,
	}
	if spec.IsLandscape {
		orientation = &proto.EmulationScreenOrientation{
			Type:  proto.EmulationScreenOrientationTypeLandscapePrimary,
			Angle: 90,
		}
	}

	return &proto.EmulationSetDeviceMetricsOverride{
		Width:             spec.Width,
		Height:            spec.Height,
		DeviceScaleFactor: 1,
		Mobile:            spec.IsMobile,
		ScreenOrientation: orientation,
	}
}
