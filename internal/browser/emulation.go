// internal/browser/emulation.go
package browser

import (
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/config"
)

// Emulate returns the protocol actions that pin the tab to cfg. Settings left
// at their zero value produce no action.
func Emulate(cfg config.EmulationConfig, logger *zap.Logger) chromedp.Tasks {
	logger.Debug("Applying device emulation.",
		zap.Int64("width", cfg.ViewportWidth),
		zap.Int64("height", cfg.ViewportHeight),
		zap.String("locale", cfg.Locale),
	)

	var tasks chromedp.Tasks
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		scale := cfg.ScaleFactor
		if scale <= 0 {
			scale = 1
		}
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(cfg.ViewportWidth, cfg.ViewportHeight, scale, false))
	}
	if cfg.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(cfg.UserAgent))
	}
	if cfg.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(cfg.Timezone))
	}
	if cfg.Locale != "" {
		tasks = append(tasks,
			emulation.SetLocaleOverride().WithLocale(cfg.Locale),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage(cfg.Locale)}),
		)
	}
	return tasks
}

// acceptLanguage turns "en-US" into "en-US,en;q=0.9".
func acceptLanguage(locale string) string {
	base, _, found := strings.Cut(locale, "-")
	if !found || base == "" {
		return locale
	}
	return locale + "," + base + ";q=0.9"
}
