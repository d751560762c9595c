package chutie

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/root4loot/chutie/pkg/viewport"
)

// fakeBrowser records every call made by the capture loop.
type fakeBrowser struct {
	calls  []string
	failAt string // "<step> <url>" to fail on
	pages  int
	closed int
}

type fakePage struct {
	b     *fakeBrowser
	id    int
	url   string
	spec  viewport.Spec
	title string
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	b.pages++
	b.calls = append(b.calls, fmt.Sprintf("newPage %d", b.pages))
	return &fakePage{b: b, id: b.pages}, nil
}

func (b *fakeBrowser) Close() error {
	b.calls = append(b.calls, "closeBrowser")
	return nil
}

func (p *fakePage) fail(step string) error {
	if p.b.failAt == step+" "+p.url {
		return fmt.Errorf("%s exploded", step)
	}
	return nil
}

func (p *fakePage) SetViewport(ctx context.Context, spec viewport.Spec) error {
	p.spec = spec
	p.b.calls = append(p.b.calls, fmt.Sprintf("setViewport %d %s", p.id, spec.PathKey))
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.url = url
	p.title = "title of " + url
	p.b.calls = append(p.b.calls, fmt.Sprintf("navigate %d %s", p.id, url))
	return p.fail("navigate")
}

func (p *fakePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	p.b.calls = append(p.b.calls, fmt.Sprintf("screenshot %d full=%v", p.id, fullPage))
	if err := p.fail("screenshot"); err != nil {
		return nil, err
	}
	h := p.spec.Height
	if fullPage {
		h *= 2
	}
	return testPNG(p.spec.Width, h), nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) { return p.title, nil }

func (p *fakePage) URL(ctx context.Context) (string, error) { return p.url + "#landed", nil }

func (p *fakePage) Close() error {
	p.b.closed++
	p.b.calls = append(p.b.calls, fmt.Sprintf("closePage %d", p.id))
	return nil
}

func testPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
