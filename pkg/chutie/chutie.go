// Package chutie captures screenshots of URLs across a set of viewports and
// records what was captured in a Session.
package chutie

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/root4loot/goutils/log"
)

// Browser is the browser-automation capability the capture loop drives.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	SetViewport(ctx context.Context, spec viewport.Spec) error
	Navigate(ctx context.Context, url string) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Close() error
}

// LaunchFunc starts a browser.
type LaunchFunc func(ctx context.Context) (Browser, error)

const (
	// MetadataFile is the name of the session JSON written next to the images.
	MetadataFile = "chutie.json"

	pathSeparatorReplacement = "_-_"
	fullPageSuffix           = "__full"
)

// Capturer runs the capture loop.
type Capturer struct {
	observer Observer
	imprint  bool
	now      func() time.Time
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithObserver reports progress to o.
func WithObserver(o Observer) Option {
	return func(c *Capturer) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithImprint adds a caption strip with the URL and viewport to every image.
func WithImprint(enabled bool) Option {
	return func(c *Capturer) { c.imprint = enabled }
}

// WithClock replaces time.Now for session and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCapturer creates a Capturer.
func NewCapturer(opts ...Option) *Capturer {
	c := &Capturer{
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture takes a viewport-sized and a full-page screenshot of every URL in
// every viewport, writing the images into dest. Work is strictly sequential.
// The first failure aborts the run and no session is returned.
func (c *Capturer) Capture(ctx context.Context, b Browser, urls []string, specs []viewport.Spec, dest string) (*Session, error) {
	session := NewSession(c.now(), urls, specs)

	if err := os.MkdirAll(dest, os.ModePerm); err != nil {
		return nil, fmt.Errorf("chutie: create %s: %w", dest, err)
	}

	log.Debugf("Capturing %d url(s) in %d viewport(s) into %s", len(session.URLs), session.Viewports.Len(), dest)

	for _, u := range session.URLs {
		for _, spec := range session.Viewports.Specs() {
			if err := c.capturePage(ctx, b, session, u, spec, dest); err != nil {
				return nil, err
			}
		}
	}

	return session, nil
}

func (c *Capturer) capturePage(ctx context.Context, b Browser, session *Session, url string, spec viewport.Spec, dest string) error {
	c.observer.PageStarted(url, spec)

	fail := func(step string, err error) error {
		return &CaptureError{URL: url, Viewport: spec.PathKey, Step: step, Err: err}
	}

	page, err := b.NewPage(ctx)
	if err != nil {
		return fail(StepNewPage, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Debugf("Could not close page for %s (%s): %v", url, spec.PathKey, err)
		}
	}()

	if err := page.SetViewport(ctx, spec); err != nil {
		return fail(StepSetViewport, err)
	}

	if err := page.Navigate(ctx, url); err != nil {
		return fail(StepNavigate, err)
	}

	for _, fullPage := range []bool{false, true} {
		img, err := page.Screenshot(ctx, fullPage)
		if err != nil {
			return fail(StepScreenshot, err)
		}

		if c.imprint {
			img, err = Imprint(img, url+"  "+spec.PathKey)
			if err != nil {
				return fail(StepImprint, err)
			}
		}

		filename := Filename(url, spec, fullPage)
		path := filepath.Join(dest, filename)
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fail(StepWrite, err)
		}

		title, err := page.Title(ctx)
		if err != nil {
			return fail(StepPageInfo, err)
		}
		landingURL, err := page.URL(ctx)
		if err != nil {
			return fail(StepPageInfo, err)
		}

		rec := Record{
			URL:      url,
			Date:     Timestamp{c.now()},
			Filename: filename,
			Path:     path,
			FullPage: fullPage,
			Viewport: spec,
			Page:     PageInfo{URL: landingURL, Title: title},
		}
		session.Pages.Append(url, rec)
		c.observer.Captured(rec)
	}

	return nil
}

// Filename returns the image name for url captured in spec:
// {SanitizeURL(url)}__{pathKey}[__full].png
func Filename(url string, spec viewport.Spec, fullPage bool) string {
	name := SanitizeURL(url) + "__" + spec.PathKey
	if fullPage {
		name += fullPageSuffix
	}
	return name + ".png"
}

// SanitizeURL replaces the platform path separator with "_-_". Nothing else
// is escaped, so some URLs remain unsafe as filenames on some platforms.
func SanitizeURL(url string) string {
	return strings.ReplaceAll(url, string(os.PathSeparator), pathSeparatorReplacement)
}
