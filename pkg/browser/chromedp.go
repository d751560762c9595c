package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/root4loot/chutie/pkg/chutie"
	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/root4loot/goutils/log"
)

// Chromedp is a browser driven through chromedp. Tab contexts derive from
// the launch context, so cancelling it aborts every pending action.
type Chromedp struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// ChromedpPage is a tab of a Chromedp browser.
type ChromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// LaunchChromedp starts a local Chrome through chromedp's exec allocator.
func LaunchChromedp(ctx context.Context, opts Options) (*Chromedp, error) {
	if opts.Stealth {
		return nil, errors.New("browser: stealth pages are only supported by the rod engine")
	}
	if opts.KeepAlive.Enabled() {
		log.Debugf("Keep-alive settings are ignored by the %s engine", EngineChromedp)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], execFlags(opts)...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// The first Run on a fresh context starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	return &Chromedp{ctx: browserCtx, cancel: cancel, allocCancel: allocCancel}, nil
}

func execFlags(opts Options) []chromedp.ExecAllocatorOption {
	var flags []chromedp.ExecAllocatorOption

	if !opts.Headless {
		flags = append(flags, chromedp.Flag("headless", false))
	}
	if opts.NoSandbox {
		flags = append(flags, chromedp.NoSandbox)
	}
	if opts.Bin != "" {
		flags = append(flags, chromedp.ExecPath(opts.Bin))
	}

	return flags
}

// NewPage opens a new tab.
func (c *Chromedp) NewPage(ctx context.Context) (chutie.Page, error) {
	tabCtx, cancel := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	return &ChromedpPage{ctx: tabCtx, cancel: cancel}, nil
}

// Close shuts the browser down gracefully.
func (c *Chromedp) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	return err
}

func (p *ChromedpPage) SetViewport(ctx context.Context, spec viewport.Spec) error {
	return chromedp.Run(p.ctx, chromedp.EmulateViewport(int64(spec.Width), int64(spec.Height), emulateOptions(spec)...))
}

func (p *ChromedpPage) Navigate(ctx context.Context, url string) error {
	return chromedp.Run(p.ctx, chromedp.Navigate(url))
}

func (p *ChromedpPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// quality 100 keeps the PNG encoding
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(p.ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *ChromedpPage) Title(ctx context.Context) (string, error) {
	var title string
	err := chromedp.Run(p.ctx, chromedp.Title(&title))
	return title, err
}

func (p *ChromedpPage) URL(ctx context.Context) (string, error) {
	var location string
	err := chromedp.Run(p.ctx, chromedp.Location(&location))
	return location, err
}

func (p *ChromedpPage) Close() error {
	p.cancel()
	return nil
}

func emulateOptions(spec viewport.Spec) []chromedp.EmulateViewportOption {
	opts := []chromedp.EmulateViewportOption{chromedp.EmulateScale(1)}

	if spec.IsMobile {
		opts = append(opts, chromedp.EmulateMobile, chromedp.EmulateTouch)
	}
	if spec.IsLandscape {
		opts = append(opts, chromedp.EmulateOrientation(emulation.OrientationTypeLandscapePrimary, 90))
	} else {
		opts = append(opts, chromedp.EmulateOrientation(emulation.OrientationTypePortraitPrimary, 0))
	}

	return opts
}
