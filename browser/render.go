package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/stealth"
)

const (
	// navTimeout bounds a single navigation.
	navTimeout = 30 * time.Second

	// settleWindow is how long the DOM must stay stable after load before
	// the page is considered fully rendered. Quiz pages build their content
	// with scripts, so a plain load event fires too early.
	settleWindow = 2 * time.Second
)

// Render opens a stealth tab, navigates to pageURL, waits for the page to
// load and settle, and returns the final serialised DOM. The tab is closed
// before returning.
func (m *Manager) Render(ctx context.Context, pageURL string) (string, error) {
	b := m.Browser()
	if b == nil {
		return "", fmt.Errorf("browser: not started")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		m.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	if err := page.Context(navCtx).WaitStable(settleWindow); err != nil {
		m.cfg.Logger.Debug("browser: wait stable", "url", pageURL, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: serialise DOM: %w", err)
	}
	return res.Value.Str(), nil
}
