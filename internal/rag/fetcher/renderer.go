package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	defaultRenderTimeout = 15 * time.Second
	// settleDelay gives dynamically loaded content a moment to appear after
	// navigation finishes.
	settleDelay = 1 * time.Second
)

// ChromeRenderer loads a page in headless Chrome and returns the rendered
// DOM's HTML. It is the fallback strategy for pages that answer 403 to plain
// HTTP clients.
type ChromeRenderer struct {
	timeout time.Duration
}

// NewChromeRenderer creates a renderer. A zero timeout selects the 15s default.
func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	return &ChromeRenderer{timeout: timeout}
}

// Render navigates to url in a fresh headless browser and returns the page's
// outer HTML after the settle delay.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("headless render of %s failed: %w", url, err)
	}

	return html, nil
}
