package stealth

import (
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
)

type FingerprintManager struct {
	config     *config.FingerprintConfig
	browserCfg *config.BrowserConfig
	log        *zap.SugaredLogger
	rand       *rand.Rand
}

type BrowserFingerprint struct {
	UserAgent string
	Timezone  string
	Language  string
	Platform  string
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

var commonTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Toronto",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Australia/Sydney",
}

func NewFingerprintManager(cfg *config.FingerprintConfig, browserCfg *config.BrowserConfig) *FingerprintManager {
	return &FingerprintManager{
		config:     cfg,
		browserCfg: browserCfg,
		log:        logger.WithComponent("fingerprint"),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *FingerprintManager) Generate() *BrowserFingerprint {
	fp := &BrowserFingerprint{
		Language: "en-US",
		Platform: "Win32",
	}

	userAgents := f.browserCfg.UserAgents
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	if f.config.RotateUserAgent {
		fp.UserAgent = userAgents[f.rand.Intn(len(userAgents))]
	} else {
		fp.UserAgent = userAgents[0]
	}
	fp.Platform = detectPlatform(fp.UserAgent)

	if f.config.SpoofTimezone {
		fp.Timezone = commonTimezones[f.rand.Intn(len(commonTimezones))]
	} else {
		fp.Timezone = "America/New_York"
	}

	if f.config.SpoofLanguage {
		languages := []string{"en-US", "en-GB", "en-CA", "en-AU"}
		fp.Language = languages[f.rand.Intn(len(languages))]
	}

	return fp
}

func detectPlatform(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Windows"):
		return "Win32"
	case strings.Contains(userAgent, "Macintosh"):
		return "MacIntel"
	case strings.Contains(userAgent, "Linux"):
		return "Linux x86_64"
	default:
		return "Win32"
	}
}

func (f *FingerprintManager) GetStealthScripts() []string {
	scripts := []string{}

	if f.config.DisableAutomation {
		scripts = append(scripts, `
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined
			});

			delete navigator.__proto__.webdriver;

			Object.defineProperty(navigator, 'plugins', {
				get: () => [1, 2, 3, 4, 5]
			});

			Object.defineProperty(navigator, 'languages', {
				get: () => ['en-US', 'en']
			});

			window.chrome = {
				runtime: {}
			};
		`)
	}

	return scripts
}

func (f *FingerprintManager) GetBrowserArgs() []string {
	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-infobars",
		"--disable-dev-shm-usage",
		"--disable-background-timer-throttling",
		"--disable-backgrounding-occluded-windows",
		"--disable-renderer-backgrounding",
	}

	if f.config.DisableAutomation {
		args = append(args,
			"--disable-extensions",
			"--disable-plugins-discovery",
		)
	}

	if f.browserCfg.DisableWebRTC {
		args = append(args,
			"--disable-webrtc",
			"--disable-webrtc-hw-encoding",
			"--disable-webrtc-hw-decoding",
		)
	}

	return args
}
