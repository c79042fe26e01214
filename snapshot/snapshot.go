package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/chromedp/chromedp"

	"rental-dashboard/config"
	"rental-dashboard/utils"
)

// Target is one dashboard view to capture.
type Target struct {
	Name string
	URL  string
}

// BuildURL returns the dashboard address for a city selection. A nil
// selection leaves base untouched, which the dashboard treats as all cities.
func BuildURL(base string, cities []string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("snapshot: parse dashboard url: %w", err)
	}
	if cities == nil {
		return u.String(), nil
	}

	q := u.Query()
	q.Set("apply", "1")
	q.Del("city")
	for _, c := range cities {
		q.Add("city", c)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Targets lists the overview plus, when perCity is set, one view per city.
func Targets(base string, cities []string, perCity bool) ([]Target, error) {
	overview, err := BuildURL(base, nil)
	if err != nil {
		return nil, err
	}
	targets := []Target{{Name: "all-cities", URL: overview}}
	if !perCity {
		return targets, nil
	}

	for _, c := range cities {
		u, err := BuildURL(base, []string{c})
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Name: Slug(c), URL: u})
	}
	return targets, nil
}

// Slug turns a city name into a file-name friendly token.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Shooter captures full-page PNG screenshots of the running dashboard with
// headless Chrome.
type Shooter struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
}

// New creates a ready-to-use Shooter.
func New(cfg *config.Config, logger *utils.Logger) *Shooter {
	return &Shooter{
		cfg:    cfg,
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Capture screenshots every target into cfg.SnapshotDir and returns the
// files written. Duplicate URLs are captured once. Cancelling ctx stops
// admitting targets; the ones already running finish or fail on their own.
func (s *Shooter) Capture(ctx context.Context, targets []Target) ([]string, error) {
	if err := os.MkdirAll(s.cfg.SnapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("snapshot: create output dir: %w", err)
	}

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[snapshot] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, fmt.Errorf("snapshot: start browser: %w", err)
	}

	var (
		mu      sync.Mutex
		written []string
		errs    []error
	)
	pool := utils.NewThrottledPool(ctx, s.cfg.MaxConcurrency,
		time.Duration(s.cfg.RateLimitMs)*time.Millisecond)
	seen := make(map[string]struct{}, len(targets))

	for _, target := range targets {
		t := target
		if _, dup := seen[t.URL]; dup {
			s.logger.Debug("[snapshot] Skipping duplicate: %s", t.URL)
			continue
		}
		seen[t.URL] = struct{}{}

		err := pool.Go(func(ctx context.Context) {
			path := filepath.Join(s.cfg.SnapshotDir, t.Name+".png")
			err := s.retry.Do(ctx, "snapshot-"+t.Name, func() error {
				return s.shoot(browserCtx, t.URL, path)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("[snapshot] %s failed: %v", t.Name, err)
				errs = append(errs, err)
				return
			}
			s.logger.Info("[snapshot] Saved %s", path)
			written = append(written, path)
		})
		if err != nil {
			s.logger.Warn("[snapshot] Stopping before %s: %v", t.Name, err)
			mu.Lock()
			errs = append(errs, fmt.Errorf("snapshot: %w", err))
			mu.Unlock()
			break
		}
	}
	pool.Wait()

	return written, errors.Join(errs...)
}

// shoot opens pageURL in a new tab, waits for the chart frames to draw and
// writes a full-page PNG to path.
func (s *Shooter) shoot(browserCtx context.Context, pageURL, path string) error {
	ctx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
	defer cancelTimeout()

	var png []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.FullScreenshot(&png, 90),
	)
	if err != nil {
		return fmt.Errorf("chromedp capture: %w", err)
	}

	if err := os.WriteFile(path, png, 0644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

// findChromeBinary locates Chrome/Chromium, preferring the configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
