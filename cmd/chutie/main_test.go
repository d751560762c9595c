package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/root4loot/chutie/pkg/browser"
	"github.com/root4loot/chutie/pkg/chutie"
	"github.com/root4loot/chutie/pkg/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type stubBrowser struct {
	launched browser.Options
	closed   bool
}

type stubPage struct {
	spec viewport.Spec
	url  string
}

func (b *stubBrowser) NewPage(ctx context.Context) (chutie.Page, error) { return &stubPage{}, nil }
func (b *stubBrowser) Close() error                                     { b.closed = true; return nil }

func (p *stubPage) SetViewport(ctx context.Context, spec viewport.Spec) error {
	p.spec = spec
	return nil
}

func (p *stubPage) Navigate(ctx context.Context, url string) error {
	p.url = url
	return nil
}

func (p *stubPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf bytes.Buffer
	err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, p.spec.Width, p.spec.Height)))
	return buf.Bytes(), err
}

func (p *stubPage) Title(ctx context.Context) (string, error) { return "", nil }
func (p *stubPage) URL(ctx context.Context) (string, error)   { return p.url, nil }
func (p *stubPage) Close() error                             { return nil }

func newTestCLI() (*cli, *stubBrowser, *bytes.Buffer, *bytes.Buffer) {
	b := &stubBrowser{}
	var stdout, stderr bytes.Buffer
	c := &cli{
		launch: func(ctx context.Context, opts browser.Options) (chutie.Browser, error) {
			b.launched = opts
			return b, nil
		},
		stdout: &stdout,
		stderr: &stderr,
	}
	return c, b, &stdout, &stderr
}

func readMetadata(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, chutie.MetadataFile))
	require.NoError(t, err)
	return string(data)
}

func TestScreenshotsRequiresInput(t *testing.T) {
	c, _, _, stderr := newTestCLI()

	code := c.run(context.Background(), []string{"screenshots"})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "You must specify")
}

func TestScreenshotsURLWithoutViewport(t *testing.T) {
	c, _, _, stderr := newTestCLI()

	code := c.run(context.Background(), []string{"screenshots", "-u", "about:blank"})
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "You must specify")
}

func TestScreenshots(t *testing.T) {
	dir := t.TempDir()
	c, b, stdout, _ := newTestCLI()

	code := c.run(context.Background(), []string{
		"screenshots", "-s",
		"-u", "about:blank",
		"-r", "1024x768 mobile landscape devname",
		"-o", dir,
	})
	require.Equal(t, 0, code)
	assert.True(t, b.closed)
	assert.True(t, b.launched.Headless)
	assert.Equal(t, browser.EngineRod, b.launched.Engine)

	meta := readMetadata(t, dir)
	var urls []string
	for _, u := range gjson.Get(meta, "urls").Array() {
		urls = append(urls, u.String())
	}
	assert.Equal(t, []string{"about:blank"}, urls)
	assert.True(t, gjson.Get(meta, "pages.about:blank").Exists())
	assert.Equal(t, int64(2), gjson.Get(meta, "pages.about:blank.#").Int())

	vp := gjson.Get(meta, "viewports.1024x768-mobile-landscape-devname")
	assert.Equal(t, int64(1024), vp.Get("width").Int())
	assert.True(t, vp.Get("isMobile").Bool())
	assert.True(t, vp.Get("isLandscape").Bool())

	pngs, err := filepath.Glob(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	assert.Len(t, pngs, 2)

	index := filepath.Join(dir, "index.html")
	assert.FileExists(t, index)
	assert.Contains(t, stdout.String(), "Successfully rendered to "+index+".")
}

func TestScreenshotsConfigThenFlags(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"urls": ["a"], "viewports": ["800x600"], "dest_path": "`+dir+`"}`), 0o644))

	c, _, _, _ := newTestCLI()
	code := c.run(context.Background(), []string{"screenshots", "-s", "-c", cfgPath, "-u", "b"})
	require.Equal(t, 0, code)

	var s struct {
		URLs []string `json:"urls"`
	}
	require.NoError(t, json.Unmarshal([]byte(readMetadata(t, dir)), &s))
	assert.Equal(t, []string{"a", "b"}, s.URLs)
	assert.FileExists(t, filepath.Join(dir, "site.json"))
}

func TestScreenshotsDestHTMLFlag(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "gallery.html")

	c, _, _, _ := newTestCLI()
	code := c.run(context.Background(), []string{
		"screenshots", "-s", "-u", "about:blank", "-r", "320x200", "-o", dir, "--dest-html", out,
	})
	require.Equal(t, 0, code)
	assert.FileExists(t, out)
	assert.NoFileExists(t, filepath.Join(dir, "index.html"))
}

func TestScreenshotsParameterErrors(t *testing.T) {
	badExt := filepath.Join(t.TempDir(), "site.toml")
	require.NoError(t, os.WriteFile(badExt, []byte("urls = []"), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"config extension", []string{"screenshots", "-c", badExt}},
		{"missing config", []string{"screenshots", "-c", filepath.Join(t.TempDir(), "nope.yaml")}},
		{"bad viewport", []string{"screenshots", "-u", "about:blank", "-r", "wide"}},
		{"bad engine", []string{"screenshots", "-u", "about:blank", "-r", "1x1", "--engine", "gecko"}},
		{"unknown flag", []string{"screenshots", "--bogus"}},
		{"unknown command", []string{"bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, stderr := newTestCLI()
			assert.Equal(t, 2, c.run(context.Background(), tt.args))
			assert.Contains(t, stderr.String(), "Error:")
		})
	}
}

func TestScreenshotsLaunchFailure(t *testing.T) {
	c, _, _, stderr := newTestCLI()
	c.launch = func(ctx context.Context, opts browser.Options) (chutie.Browser, error) {
		return nil, os.ErrNotExist
	}

	code := c.run(context.Background(), []string{"screenshots", "-s", "-u", "about:blank", "-r", "1x1", "-o", t.TempDir()})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "file does not exist")
}

func TestScreenshotsBrowserFlags(t *testing.T) {
	c, b, _, _ := newTestCLI()

	code := c.run(context.Background(), []string{
		"screenshots", "-s", "-u", "about:blank", "-r", "1x1", "-o", t.TempDir(),
		"--engine", "chromedp", "--headful", "--no-sandbox", "--ping-interval", "5s", "--ping-timeout", "2s",
	})
	require.Equal(t, 0, code)
	assert.Equal(t, browser.EngineChromedp, b.launched.Engine)
	assert.False(t, b.launched.Headless)
	assert.True(t, b.launched.NoSandbox)
	assert.True(t, b.launched.KeepAlive.Enabled())
	assert.Equal(t, "2s", b.launched.KeepAlive.Timeout.String())
}

func TestTemplate(t *testing.T) {
	dir := t.TempDir()
	c, _, _, _ := newTestCLI()
	require.Equal(t, 0, c.run(context.Background(), []string{"screenshots", "-s", "-u", "about:blank", "-r", "640x480", "-o", dir}))

	tmplDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmplDir, "list.html"),
		[]byte(`{{range .URLs}}<li>{{.}}</li>{{end}}`), 0o644))

	out := filepath.Join(t.TempDir(), "list-out.html")
	c, _, stdout, _ := newTestCLI()
	code := c.run(context.Background(), []string{
		"template", "-s",
		"-f", filepath.Join(dir, chutie.MetadataFile),
		"-t", "list.html",
		"--template-dir", tmplDir,
		"-o", out,
	})
	require.Equal(t, 0, code)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "<li>about:blank</li>", string(got))
	assert.Contains(t, stdout.String(), "Successfully rendered to "+out+".")
}

func TestTemplateMissingJSON(t *testing.T) {
	c, _, _, _ := newTestCLI()
	code := c.run(context.Background(), []string{"template", "-s", "-f", filepath.Join(t.TempDir(), "chutie.json")})
	assert.Equal(t, 1, code)
}

func TestHelp(t *testing.T) {
	c, _, stdout, _ := newTestCLI()
	assert.Equal(t, 0, c.run(context.Background(), nil))
	assert.Contains(t, stdout.String(), "screenshots")
	assert.Contains(t, stdout.String(), "template")

	c, _, stdout, _ = newTestCLI()
	assert.Equal(t, 0, c.run(context.Background(), []string{"screenshots", "--help"}))
	assert.Contains(t, stdout.String(), "--viewports")
}
