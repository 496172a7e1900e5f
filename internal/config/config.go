// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds the process Settings from viper: defaults, an
// optional YAML file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-digest/internal/schedule"
	"github.com/pdiddy/arxiv-digest/pkg/types"
)

// EnvPrefix prefixes the derived environment name of every key, e.g.
// ARXIV_DIGEST_SEARCH_MAX_RESULTS.
const EnvPrefix = "ARXIV_DIGEST"

// DefaultUserAgent is sent with every arXiv request.
const DefaultUserAgent = "arxiv-digest/0.1 (+https://github.com/pdiddy/arxiv-digest)"

// envAliases lists the short environment names accepted for a key in
// addition to the prefixed one. The first set variable wins.
var envAliases = map[string][]string{
	"search.keywords":         {"ARXIV_KEYWORDS"},
	"search.max_results":      {"MAX_PAPERS"},
	"search.lookback_days":    {"MAX_BACK_DAY"},
	"search.source":           {"SEARCH_SOURCE"},
	"search.request_interval": {"SEARCH_REQUEST_INTERVAL"},
	"analyzer.api_key":        {"GEMINI_API_KEY"},
	"analyzer.model":          {"GEMINI_MODEL"},
	"analyzer.max_retries":    {"ANALYZER_MAX_RETRIES"},
	"analyzer.language":       {"ANALYSIS_LANGUAGE"},
	"email.enabled":           {"EMAIL_ENABLED"},
	"email.host":              {"SMTP_SERVER"},
	"email.port":              {"SMTP_PORT"},
	"email.username":          {"SENDER_EMAIL"},
	"email.password":          {"SENDER_PASSWORD"},
	"email.recipient":         {"RECIPIENT_EMAIL"},
	"email.send_as_image":     {"SEND_AS_IMAGE"},
	"email.send_summary":      {"SEND_RUN_SUMMARY"},
	"chat.enabled":            {"WECHAT_ENABLED", "CHAT_ENABLED"},
	"chat.recipient":          {"WECHAT_RECIPIENT", "CHAT_RECIPIENT"},
	"chat.bridge_url":         {"CHAT_BRIDGE_URL"},
	"artifacts.download_dir":  {"PDF_DOWNLOAD_DIR"},
	"schedule.time":           {"SCHEDULE_TIME"},
	"logging.level":           {"LOG_LEVEL"},
	"logging.format":          {"LOG_FORMAT"},
}

// Bind registers defaults and environment bindings on v.
func Bind(v *viper.Viper) error {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.keywords", "machine learning,artificial intelligence")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.lookback_days", 3)
	v.SetDefault("search.source", string(types.SourceAPI))
	v.SetDefault("search.request_interval", "3s")
	v.SetDefault("search.timeout", "30s")

	v.SetDefault("artifacts.download_dir", "./downloads")
	v.SetDefault("artifacts.timeout", "60s")
	v.SetDefault("artifacts.render_scale", 4.0)
	v.SetDefault("artifacts.max_width", 1600)
	v.SetDefault("artifacts.max_height", 2000)
	v.SetDefault("artifacts.sharpen", true)

	v.SetDefault("analyzer.model", "gemini-2.0-flash")
	v.SetDefault("analyzer.max_retries", 3)
	v.SetDefault("analyzer.language", "English")
	v.SetDefault("analyzer.timeout", "60s")

	v.SetDefault("email.enabled", true)
	v.SetDefault("email.host", "smtp.gmail.com")
	v.SetDefault("email.port", 465)
	v.SetDefault("email.send_as_image", true)
	v.SetDefault("email.send_summary", false)
	v.SetDefault("email.timeout", "30s")

	v.SetDefault("chat.enabled", false)
	v.SetDefault("chat.bridge_url", "http://127.0.0.1:8765")
	v.SetDefault("chat.timeout", "30s")

	v.SetDefault("schedule.time", "09:00")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (types.Settings, error) {
	s := Decode(v)
	if err := Validate(s); err != nil {
		return s, err
	}
	return s, nil
}

// Decode reads the settings held by v without validating them.
func Decode(v *viper.Viper) types.Settings {
	userAgent := v.GetString("http.user_agent")
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return types.Settings{
		Search: types.SearchConfig{
			HTTPConfig:      types.HTTPConfig{Timeout: v.GetDuration("search.timeout"), UserAgent: userAgent},
			Keywords:        stringList(v.Get("search.keywords")),
			MaxResults:      v.GetInt("search.max_results"),
			LookbackDays:    v.GetInt("search.lookback_days"),
			Source:          types.SourceKind(strings.ToLower(strings.TrimSpace(v.GetString("search.source")))),
			RequestInterval: v.GetDuration("search.request_interval"),
		},
		Artifacts: types.ArtifactConfig{
			HTTPConfig:  types.HTTPConfig{Timeout: v.GetDuration("artifacts.timeout"), UserAgent: userAgent},
			DownloadDir: v.GetString("artifacts.download_dir"),
			RenderScale: v.GetFloat64("artifacts.render_scale"),
			MaxWidth:    v.GetInt("artifacts.max_width"),
			MaxHeight:   v.GetInt("artifacts.max_height"),
			Sharpen:     v.GetBool("artifacts.sharpen"),
			FontPaths:   stringList(v.Get("artifacts.font_paths")),
		},
		Analyzer: types.AnalyzerConfig{
			AIConfig: types.AIConfig{
				Model:      v.GetString("analyzer.model"),
				APIKey:     v.GetString("analyzer.api_key"),
				MaxRetries: v.GetInt("analyzer.max_retries"),
			},
			Language: v.GetString("analyzer.language"),
			Timeout:  v.GetDuration("analyzer.timeout"),
		},
		Email: types.EmailConfig{
			Enabled:     v.GetBool("email.enabled"),
			Host:        v.GetString("email.host"),
			Port:        v.GetInt("email.port"),
			Username:    v.GetString("email.username"),
			Password:    v.GetString("email.password"),
			Recipient:   v.GetString("email.recipient"),
			SendAsImage: v.GetBool("email.send_as_image"),
			SendSummary: v.GetBool("email.send_summary"),
			Timeout:     v.GetDuration("email.timeout"),
		},
		Chat: types.ChatConfig{
			Enabled:   v.GetBool("chat.enabled"),
			Recipient: v.GetString("chat.recipient"),
			BridgeURL: v.GetString("chat.bridge_url"),
			Timeout:   v.GetDuration("chat.timeout"),
		},
		Schedule: types.ScheduleConfig{
			Time: v.GetString("schedule.time"),
		},
		Logging: types.LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			Output: v.GetString("logging.output"),
		},
	}
}

// stringList accepts a comma-separated string or a YAML list.
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
	default:
		parts = []string{fmt.Sprint(val)}
	}

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks s and reports every offending field.
func Validate(s types.Settings) error {
	var errs []error
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating settings: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}
	if _, err := schedule.ParseDaily(s.Schedule.Time); err != nil && s.Schedule.Time != "" {
		errs = append(errs, fmt.Errorf("schedule.time: %w", err))
	}
	if !s.Email.Enabled && !s.Chat.Enabled {
		errs = append(errs, errors.New("no delivery channel enabled: enable email or chat"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateSearch checks only the discovery settings.
func ValidateSearch(s types.SearchConfig) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating search settings: %w", err)
		}
		errs := make([]error, 0, len(verrs))
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
		return fmt.Errorf("invalid search configuration: %w", errors.Join(errs...))
	}
	return nil
}

// fieldError renders a validation failure as "search.max_results: must be gt 0".
func fieldError(fe validator.FieldError) error {
	segs := strings.Split(fe.Namespace(), ".")
	var path []string
	for i, seg := range segs {
		// Drop the root type name and embedded struct names.
		if i == 0 || (seg != "" && unicode.IsUpper([]rune(seg)[0])) {
			continue
		}
		path = append(path, seg)
	}
	key := strings.Join(path, ".")

	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Errorf("%s: required", key)
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Errorf("%s: needs at least %s entries", key, fe.Param())
	default:
		return fmt.Errorf("%s: must be %s %s", key, fe.Tag(), fe.Param())
	}
}
