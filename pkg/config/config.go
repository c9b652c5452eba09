package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linkedin-outreach/pkg/logger"
)

type Config struct {
	LinkedIn  LinkedInConfig  `yaml:"linkedin" json:"linkedin"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Stealth   StealthConfig   `yaml:"stealth" json:"stealth"`
	Session   SessionConfig   `yaml:"session" json:"session"`
	Acquire   AcquireConfig   `yaml:"acquire" json:"acquire"`
	Selectors Selectors       `yaml:"selectors" json:"selectors"`
	Report    ReportConfig    `yaml:"report" json:"report"`
	Logging   logger.Config   `yaml:"logging" json:"logging"`
}

type LinkedInConfig struct {
	Email    string `yaml:"email" json:"email"`
	Password string `yaml:"password" json:"password"`
}

type BrowserConfig struct {
	Headless      bool     `yaml:"headless" json:"headless"`
	Bin           string   `yaml:"bin" json:"bin"`
	UserDataDir   string   `yaml:"user_data_dir" json:"user_data_dir"`
	ScreenshotDir string   `yaml:"screenshot_dir" json:"screenshot_dir"`
	UserAgents    []string `yaml:"user_agents" json:"user_agents"`
	DisableWebRTC bool     `yaml:"disable_webrtc" json:"disable_webrtc"`
}

type StealthConfig struct {
	Timing        TimingConfig        `yaml:"timing" json:"timing"`
	Typing        TypingConfig        `yaml:"typing" json:"typing"`
	MouseMovement MouseMovementConfig `yaml:"mouse_movement" json:"mouse_movement"`
	Scrolling     ScrollingConfig     `yaml:"scrolling" json:"scrolling"`
	Fingerprint   FingerprintConfig   `yaml:"fingerprinting" json:"fingerprinting"`
}

// TimingConfig holds every delay range the run uses. Tests substitute a
// zeroed config for deterministic, instant runs.
type TimingConfig struct {
	MinActionDelay    time.Duration `yaml:"min_action_delay" json:"min_action_delay"`
	MaxActionDelay    time.Duration `yaml:"max_action_delay" json:"max_action_delay"`
	MinThinkTime      time.Duration `yaml:"min_think_time" json:"min_think_time"`
	MaxThinkTime      time.Duration `yaml:"max_think_time" json:"max_think_time"`
	MinSettleDelay    time.Duration `yaml:"min_settle_delay" json:"min_settle_delay"`
	MaxSettleDelay    time.Duration `yaml:"max_settle_delay" json:"max_settle_delay"`
	MinInteractionGap time.Duration `yaml:"min_interaction_gap" json:"min_interaction_gap"`
	MaxInteractionGap time.Duration `yaml:"max_interaction_gap" json:"max_interaction_gap"`
	PageLoadWait      time.Duration `yaml:"page_load_wait" json:"page_load_wait"`
	HumanVariation    float64       `yaml:"human_variation" json:"human_variation"`
}

type TypingConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	MinKeyDelay      time.Duration `yaml:"min_key_delay" json:"min_key_delay"`
	MaxKeyDelay      time.Duration `yaml:"max_key_delay" json:"max_key_delay"`
	TypoChance       float64       `yaml:"typo_chance" json:"typo_chance"`
	CorrectionDelay  time.Duration `yaml:"correction_delay" json:"correction_delay"`
	ThinkPauseChance float64       `yaml:"think_pause_chance" json:"think_pause_chance"`
}

type MouseMovementConfig struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	MinSpeed         float64 `yaml:"min_speed" json:"min_speed"`
	MaxSpeed         float64 `yaml:"max_speed" json:"max_speed"`
	OvershootEnabled bool    `yaml:"overshoot_enabled" json:"overshoot_enabled"`
	MicroMovements   bool    `yaml:"micro_movements" json:"micro_movements"`
	BezierComplexity int     `yaml:"bezier_complexity" json:"bezier_complexity"`
}

type ScrollingConfig struct {
	Enabled          bool    `yaml:"enabled" json:"enabled"`
	MinScrollSpeed   int     `yaml:"min_scroll_speed" json:"min_scroll_speed"`
	MaxScrollSpeed   int     `yaml:"max_scroll_speed" json:"max_scroll_speed"`
	ScrollBackChance float64 `yaml:"scroll_back_chance" json:"scroll_back_chance"`
	PauseChance      float64 `yaml:"pause_chance" json:"pause_chance"`
	SmoothScrolling  bool    `yaml:"smooth_scrolling" json:"smooth_scrolling"`
}

type FingerprintConfig struct {
	RotateUserAgent   bool `yaml:"rotate_user_agent" json:"rotate_user_agent"`
	DisableAutomation bool `yaml:"disable_automation" json:"disable_automation"`
	SpoofTimezone     bool `yaml:"spoof_timezone" json:"spoof_timezone"`
	SpoofLanguage     bool `yaml:"spoof_language" json:"spoof_language"`
}

type SessionConfig struct {
	// MarkerTimeout bounds the cheap probes: the logged-in marker and the
	// step-up verification input.
	MarkerTimeout time.Duration `yaml:"marker_timeout" json:"marker_timeout"`
	FieldTimeout  time.Duration `yaml:"field_timeout" json:"field_timeout"`
	// StepUpWait is the wall-clock window granted for out-of-band manual
	// completion of a verification challenge.
	StepUpWait time.Duration `yaml:"step_up_wait" json:"step_up_wait"`
}

type AcquireConfig struct {
	MaxEmptyPages     int           `yaml:"max_empty_pages" json:"max_empty_pages"`
	MaxIdle           time.Duration `yaml:"max_idle" json:"max_idle"`
	ModalTimeout      time.Duration `yaml:"modal_timeout" json:"modal_timeout"`
	PaginationTimeout time.Duration `yaml:"pagination_timeout" json:"pagination_timeout"`
	ScrollPasses      int           `yaml:"scroll_passes" json:"scroll_passes"`
	SearchTimeout     time.Duration `yaml:"search_timeout" json:"search_timeout"`
}

// Selectors keeps every DOM query as data so the automation logic never
// embeds selector syntax. Entries starting with "/" are XPath expressions
// for controls that carry no stable attribute and are matched by their
// visible label instead.
type Selectors struct {
	AuthenticatedMarker string `yaml:"authenticated_marker" json:"authenticated_marker"`
	LoginEmail          string `yaml:"login_email" json:"login_email"`
	LoginPassword       string `yaml:"login_password" json:"login_password"`
	LoginSubmit         string `yaml:"login_submit" json:"login_submit"`
	StepUpInput         string `yaml:"step_up_input" json:"step_up_input"`
	SearchInput         string `yaml:"search_input" json:"search_input"`
	PeopleScope         string `yaml:"people_scope" json:"people_scope"`
	ProfileCard         string `yaml:"profile_card" json:"profile_card"`
	ConnectButton       string `yaml:"connect_button" json:"connect_button"`
	SendWithoutNote     string `yaml:"send_without_note" json:"send_without_note"`
	SendNow             string `yaml:"send_now" json:"send_now"`
	DismissModal        string `yaml:"dismiss_modal" json:"dismiss_modal"`
	NextButton          string `yaml:"next_button" json:"next_button"`
}

type ReportConfig struct {
	DataDir     string `yaml:"data_dir" json:"data_dir"`
	HistoryFile string `yaml:"history_file" json:"history_file"`
	CSVFile     string `yaml:"csv_file" json:"csv_file"`
}

func DefaultConfig() *Config {
	return &Config{
		LinkedIn: LinkedInConfig{
			Email:    os.Getenv("LINKEDIN_EMAIL"),
			Password: os.Getenv("LINKEDIN_PASSWORD"),
		},
		Browser: BrowserConfig{
			Headless:      true,
			UserDataDir:   "./data/browser",
			ScreenshotDir: "./data/screenshots",
			DisableWebRTC: true,
		},
		Stealth: StealthConfig{
			Timing: TimingConfig{
				MinActionDelay:    500 * time.Millisecond,
				MaxActionDelay:    2000 * time.Millisecond,
				MinThinkTime:      1000 * time.Millisecond,
				MaxThinkTime:      5000 * time.Millisecond,
				MinSettleDelay:    1500 * time.Millisecond,
				MaxSettleDelay:    4000 * time.Millisecond,
				MinInteractionGap: 5 * time.Second,
				MaxInteractionGap: 10 * time.Second,
				PageLoadWait:      3000 * time.Millisecond,
				HumanVariation:    0.3,
			},
			Typing: TypingConfig{
				Enabled:          true,
				MinKeyDelay:      50 * time.Millisecond,
				MaxKeyDelay:      150 * time.Millisecond,
				TypoChance:       0.02,
				CorrectionDelay:  300 * time.Millisecond,
				ThinkPauseChance: 0.05,
			},
			MouseMovement: MouseMovementConfig{
				Enabled:          true,
				MinSpeed:         0.5,
				MaxSpeed:         2.0,
				OvershootEnabled: true,
				MicroMovements:   true,
				BezierComplexity: 3,
			},
			Scrolling: ScrollingConfig{
				Enabled:          true,
				MinScrollSpeed:   50,
				MaxScrollSpeed:   200,
				ScrollBackChance: 0.1,
				PauseChance:      0.15,
				SmoothScrolling:  true,
			},
			Fingerprint: FingerprintConfig{
				RotateUserAgent:   true,
				DisableAutomation: true,
				SpoofTimezone:     true,
			},
		},
		Session: SessionConfig{
			MarkerTimeout: 5 * time.Second,
			FieldTimeout:  10 * time.Second,
			StepUpWait:    60 * time.Second,
		},
		Acquire: AcquireConfig{
			MaxEmptyPages:     5,
			MaxIdle:           5 * time.Minute,
			ModalTimeout:      5 * time.Second,
			PaginationTimeout: 5 * time.Second,
			ScrollPasses:      2,
			SearchTimeout:     15 * time.Second,
		},
		Selectors: DefaultSelectors(),
		Report: ReportConfig{
			DataDir:     "./data",
			HistoryFile: "runs.json",
			CSVFile:     "runs.csv",
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "console",
			OutputFile: "./data/logs/outreach.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     14,
		},
	}
}

func DefaultSelectors() Selectors {
	return Selectors{
		AuthenticatedMarker: ".global-nav__me-photo",
		LoginEmail:          "#username",
		LoginPassword:       "#password",
		LoginSubmit:         "button[type='submit']",
		StepUpInput:         "input[name='pin']",
		SearchInput:         "input.search-global-typeahead__input",
		PeopleScope:         `//button[normalize-space(text())='People']`,
		ProfileCard:         "li.reusable-search__result-container",
		ConnectButton:       `//button[.//span[normalize-space(text())='Connect']]`,
		SendWithoutNote:     "button[aria-label='Send without a note']",
		SendNow:             "button[aria-label='Send now']",
		DismissModal:        "button[aria-label='Dismiss']",
		NextButton:          `//button[@aria-label='Next' or .//span[normalize-space(text())='Next']]`,
	}
}

func Load(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		ext := filepath.Ext(configPath)
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case ".json":
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse JSON config: %w", err)
			}
		default:
			return nil, fmt.Errorf("unsupported config file format: %s", ext)
		}
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	if email := os.Getenv("LINKEDIN_EMAIL"); email != "" {
		c.LinkedIn.Email = email
	}
	if password := os.Getenv("LINKEDIN_PASSWORD"); password != "" {
		c.LinkedIn.Password = password
	}
	if headless := os.Getenv("BROWSER_HEADLESS"); headless == "false" {
		c.Browser.Headless = false
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
}

func (c *Config) Validate() error {
	if c.LinkedIn.Email == "" {
		return fmt.Errorf("LinkedIn email is required")
	}
	if c.LinkedIn.Password == "" {
		return fmt.Errorf("LinkedIn password is required")
	}
	if c.Acquire.MaxEmptyPages < 1 {
		return fmt.Errorf("max empty pages must be at least 1")
	}
	if c.Acquire.MaxIdle <= 0 {
		return fmt.Errorf("max idle duration must be positive")
	}
	if c.Session.StepUpWait <= 0 {
		return fmt.Errorf("step-up wait must be positive")
	}
	return nil
}

func (c *Config) Save(path string) error {
	ext := filepath.Ext(path)
	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
