package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "arxiv-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceKind selects the discovery source for a run.
type SourceKind string

const (
	SourceAPI SourceKind = "api"
	SourceRSS SourceKind = "rss"
)

// SearchConfig holds settings for the discovery stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Keywords are searched with OR semantics.
	Keywords []string `json:"keywords" yaml:"keywords" validate:"min=1,dive,required"`

	// MaxResults bounds each upstream request (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" validate:"gt=0"`

	// LookbackDays is the trailing publication window (default 3).
	LookbackDays int `json:"lookback_days" yaml:"lookback_days" validate:"gt=0"`

	// Source selects the Query-API or the category feed.
	Source SourceKind `json:"source" yaml:"source" validate:"oneof=api rss"`

	// RequestInterval is the minimum spacing between arXiv requests (default 3s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" validate:"gte=0"`
}

// Query returns the SearchQuery described by the configuration.
func (c SearchConfig) Query() SearchQuery {
	return SearchQuery{
		Keywords:     c.Keywords,
		LookbackDays: c.LookbackDays,
		MaxResults:   c.MaxResults,
	}
}

// ArtifactConfig holds settings for the artifact cache and rendered images.
type ArtifactConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDir is the base directory: documents live at its root,
	// previews under screenshots/, digests under generated_images/.
	DownloadDir string `json:"download_dir" yaml:"download_dir" validate:"required"`

	// RenderScale multiplies the native page resolution before downscaling (default 4).
	RenderScale float64 `json:"render_scale" yaml:"render_scale" validate:"gt=0"`

	// MaxWidth and MaxHeight bound the stored preview (default 1600x2000).
	MaxWidth  int `json:"max_width" yaml:"max_width" validate:"gt=0"`
	MaxHeight int `json:"max_height" yaml:"max_height" validate:"gt=0"`

	// Sharpen enables the post-resize sharpening pass.
	Sharpen bool `json:"sharpen" yaml:"sharpen"`

	// FontPaths lists TrueType fonts tried in order for digest images; the
	// embedded Go fonts are used when none loads.
	FontPaths []string `json:"font_paths,omitempty" yaml:"font_paths,omitempty"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-2.0-flash").
	Model string `json:"model" yaml:"model" validate:"required"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" validate:"required"`

	// MaxRetries is the number of attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" validate:"gt=0"`
}

// AnalyzerConfig holds settings for the summarization stage.
type AnalyzerConfig struct {
	AIConfig `yaml:",inline"`

	// Language is the language the summary is written in.
	Language string `json:"language" yaml:"language"`

	// Timeout bounds one analyzer call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	Host string `json:"host" yaml:"host" validate:"required_if=Enabled true"`
	Port int    `json:"port" yaml:"port" validate:"required_if=Enabled true"`

	// Username is also the sender address.
	Username string `json:"username" yaml:"username" validate:"required_if=Enabled true"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" validate:"required_if=Enabled true"`

	Recipient string `json:"recipient" yaml:"recipient" validate:"required_if=Enabled true"`

	// SendAsImage mails the digest image instead of the rich HTML body.
	SendAsImage bool `json:"send_as_image" yaml:"send_as_image"`

	// SendSummary mails a run summary after each run.
	SendSummary bool `json:"send_summary" yaml:"send_summary"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ChatConfig holds desktop chat delivery settings.
type ChatConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Recipient is the chat contact the digest image is sent to.
	Recipient string `json:"recipient" yaml:"recipient" validate:"required_if=Enabled true"`

	// BridgeURL is the local automation bridge driving the desktop client.
	BridgeURL string `json:"bridge_url" yaml:"bridge_url" validate:"required_if=Enabled true"`

	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ScheduleConfig holds the daily trigger settings.
type ScheduleConfig struct {
	// Time is the local wall-clock run time, "HH:MM".
	Time string `json:"time" yaml:"time" validate:"required"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format" validate:"omitempty,oneof=json console pretty"`
	Output string `json:"output" yaml:"output"`
}

// Settings groups every stage configuration for one process.
type Settings struct {
	Search    SearchConfig   `json:"search" yaml:"search"`
	Artifacts ArtifactConfig `json:"artifacts" yaml:"artifacts"`
	Analyzer  AnalyzerConfig `json:"analyzer" yaml:"analyzer"`
	Email     EmailConfig    `json:"email" yaml:"email"`
	Chat      ChatConfig     `json:"chat" yaml:"chat"`
	Schedule  ScheduleConfig `json:"schedule" yaml:"schedule"`
	Logging   LoggingConfig  `json:"logging" yaml:"logging"`
}

// Redacted returns a copy of s with credentials masked, for display.
func (s Settings) Redacted() Settings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return "********"
	}
	s.Analyzer.APIKey = mask(s.Analyzer.APIKey)
	s.Email.Password = mask(s.Email.Password)
	return s
}
