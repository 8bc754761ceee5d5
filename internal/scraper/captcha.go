package scraper

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/browser"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
)

const (
	captchaRefreshSelector = ".refresh-btn"
	captchaImageSelector   = "#captcha_image"
	captchaInputSelector   = "#captcha"
)

// CaptchaProvider captures the portal's CAPTCHA for a human to solve
type CaptchaProvider struct {
	adapter browser.Adapter
	logger  *logger.Logger
	timeout time.Duration
}

// NewCaptchaProvider creates a provider over an adapter
func NewCaptchaProvider(adapter browser.Adapter, logger *logger.Logger, timeout time.Duration) *CaptchaProvider {
	return &CaptchaProvider{adapter: adapter, logger: logger, timeout: timeout}
}

// Challenge refreshes the CAPTCHA and returns a PNG of the new image.
// No recognition is attempted.
func (c *CaptchaProvider) Challenge(ctx context.Context) ([]byte, error) {
	if err := c.adapter.Click(ctx, captchaRefreshSelector, c.timeout); err != nil {
		return nil, fmt.Errorf("failed to refresh captcha: %w", err)
	}

	png, err := c.adapter.ScreenshotElement(ctx, captchaImageSelector, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to capture captcha: %w", err)
	}

	c.logger.Debug("Captured captcha", "bytes", len(png))
	return png, nil
}

// EncodeImage base64-encodes an image for JSON transport
func EncodeImage(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}
