// Package capture renders site pages in headless Chromium and saves PNG
// snapshots, used for previews and visual checks of a deployment.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"portfolio/internal/convert"
	appLog "portfolio/internal/log"
)

const (
	DefaultWidth   = 1280
	DefaultHeight  = 800
	DefaultTimeout = 30 * time.Second

	// readySelector is set by app.js once the page has finished its
	// client-side setup.
	readySelector = `[data-ready="true"]`
)

// DefaultPages are captured when Options.Pages is empty.
var DefaultPages = []string{"/", "/resume"}

type Options struct {
	// BaseURL of a running instance, e.g. "http://127.0.0.1:8080".
	BaseURL string
	Pages   []string
	OutDir  string

	Width  int
	Height int

	// Dark captures with the night theme applied.
	Dark bool

	// Timeout bounds each page.
	Timeout time.Duration

	// Preview also writes a link preview image next to the first page.
	Preview bool
}

func (o *Options) normalize() error {
	if o.BaseURL == "" {
		return errors.New("capture: base url is required")
	}
	u, err := url.Parse(o.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("capture: invalid base url %q", o.BaseURL)
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	if o.OutDir == "" {
		return errors.New("capture: output directory is required")
	}
	if len(o.Pages) == 0 {
		o.Pages = DefaultPages
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return nil
}

// fileName maps a page path to its PNG name: "/" is index.png,
// "/calendar" is calendar.png, "/a/b" is a_b.png.
func fileName(page string, dark bool) string {
	name := strings.Trim(page, "/")
	if name == "" {
		name = "index"
	}
	name = strings.NewReplacer("/", "_", "?", "_", "&", "_", "=", "-").Replace(name)
	if dark {
		name += "-dark"
	}
	return name + ".png"
}

// Snapshot captures every page in opts and returns the written paths.
func Snapshot(parent context.Context, opts Options) ([]string, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	browser, cancel := chromedp.NewContext(parent)
	defer cancel()

	paths := make([]string, 0, len(opts.Pages)+1)
	for i, page := range opts.Pages {
		out := filepath.Join(opts.OutDir, fileName(page, opts.Dark))
		shot, err := capturePage(browser, opts, page)
		if err == nil {
			err = os.WriteFile(out, shot, 0o644)
		}
		if err != nil {
			return paths, fmt.Errorf("capture %s: %w", page, err)
		}
		appLog.Info("snapshot written", "page", page, "path", out)
		paths = append(paths, out)

		if opts.Preview && i == 0 {
			p, err := writePreview(opts.OutDir, shot, opts.Dark)
			if err != nil {
				return paths, err
			}
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func previewName(dark bool) string {
	if dark {
		return "og-dark.png"
	}
	return "og.png"
}

func writePreview(dir string, shot []byte, dark bool) (string, error) {
	data, err := convert.PreviewPNG(shot)
	if err != nil {
		return "", err
	}
	out := filepath.Join(dir, previewName(dark))
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", err
	}
	appLog.Info("preview written", "path", out)
	return out, nil
}

func capturePage(browser context.Context, opts Options, page string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(browser, opts.Timeout)
	defer cancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.BaseURL + page),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
	}
	if opts.Dark {
		tasks = append(tasks, chromedp.Evaluate(`document.documentElement.classList.add("dark")`, nil))
	}
	// let transitions settle
	tasks = append(tasks, chromedp.Sleep(500*time.Millisecond), chromedp.FullScreenshot(&png, 100))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, err
	}
	return png, nil
}
