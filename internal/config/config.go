package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Lookup LookupConfig `yaml:"lookup"`
	Speech SpeechConfig `yaml:"speech"`
}

// Load 从环境变量加载配置。WIKICHAT_CONFIG 指向的 YAML 文件先被读取，环境变量随后覆盖。
func Load() (*Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("WIKICHAT_CONFIG")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyServerEnv(&cfg.Server); err != nil {
		return nil, err
	}
	if err := applyLogEnv(&cfg.Log); err != nil {
		return nil, err
	}
	if err := applyLookupEnv(&cfg.Lookup); err != nil {
		return nil, err
	}
	if err := applySpeechEnv(&cfg.Speech); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Lookup: LookupConfig{
			WikiAPIURL:       "https://en.wikipedia.org/w/api.php",
			SearchURL:        "https://html.duckduckgo.com/html/",
			SearchResults:    3,
			SummarySentences: 2,
			SnippetTimeout:   5 * time.Second,
			Timeout:          10 * time.Second,
			UserAgent:        "Mozilla/5.0",
		},
		Speech: SpeechConfig{
			Region:         "cn-beijing",
			ASRLanguage:    "en-US",
			Timeout:        30,
			CaptureSeconds: 5,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// applyServerEnv 解析服务器监听地址。
func applyServerEnv(server *ServerConfig) error {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return nil
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		server.Addr = port
		return nil
	}

	if strings.Contains(port, " ") {
		return fmt.Errorf("invalid PORT value: %q", port)
	}

	server.Addr = ":" + port
	return nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json 或 console
}

func applyLogEnv(logCfg *LogConfig) error {
	logCfg.Level = getEnvOrDefault("LOG_LEVEL", logCfg.Level)
	logCfg.Format = getEnvOrDefault("LOG_FORMAT", logCfg.Format)

	switch logCfg.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("invalid LOG_FORMAT value %q", logCfg.Format)
	}
}

// LookupConfig 描述百科、搜索与网页摘要适配器的配置。
type LookupConfig struct {
	WikiAPIURL       string        `yaml:"wikiApiUrl"`
	SearchURL        string        `yaml:"searchUrl"`
	SearchResults    int           `yaml:"searchResults"`
	SummarySentences int           `yaml:"summarySentences"`
	SnippetTimeout   time.Duration `yaml:"snippetTimeout"`
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"userAgent"`
}

func applyLookupEnv(lookup *LookupConfig) error {
	lookup.WikiAPIURL = getEnvOrDefault("WIKI_API_URL", lookup.WikiAPIURL)
	if lang := strings.TrimSpace(os.Getenv("WIKI_LANGUAGE")); lang != "" && os.Getenv("WIKI_API_URL") == "" {
		lookup.WikiAPIURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
	}
	lookup.SearchURL = getEnvOrDefault("SEARCH_URL", lookup.SearchURL)
	lookup.UserAgent = getEnvOrDefault("LOOKUP_USER_AGENT", lookup.UserAgent)

	results, err := parseOptionalIntEnv("SEARCH_RESULTS")
	if err != nil {
		return err
	}
	if results != nil {
		if *results < 1 {
			return fmt.Errorf("invalid SEARCH_RESULTS value %d: must be positive", *results)
		}
		lookup.SearchResults = *results
	}

	sentences, err := parseOptionalIntEnv("SUMMARY_SENTENCES")
	if err != nil {
		return err
	}
	if sentences != nil {
		if *sentences < 1 {
			return fmt.Errorf("invalid SUMMARY_SENTENCES value %d: must be positive", *sentences)
		}
		lookup.SummarySentences = *sentences
	}

	snippetTimeout, err := parseOptionalDurationEnv("SNIPPET_TIMEOUT")
	if err != nil {
		return err
	}
	if snippetTimeout != nil {
		lookup.SnippetTimeout = *snippetTimeout
	}

	timeout, err := parseOptionalDurationEnv("LOOKUP_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		lookup.Timeout = *timeout
	}

	return nil
}

// SpeechConfig 描述语音服务相关配置
type SpeechConfig struct {
	AppID          string `yaml:"appId"`
	AccessToken    string `yaml:"accessToken"`
	APIKey         string `yaml:"apiKey"`
	Region         string `yaml:"region"`
	BaseURL        string `yaml:"baseUrl"`
	ASRModel       string `yaml:"asrModel"`
	ASRLanguage    string `yaml:"asrLanguage"`
	ConcurrentMode bool   `yaml:"concurrentMode"`
	Timeout        int    `yaml:"timeout"`        // seconds
	CaptureSeconds int    `yaml:"captureSeconds"` // 单次录音窗口
	Enabled        bool   `yaml:"-"`
}

func applySpeechEnv(speech *SpeechConfig) error {
	// 解析超时设置
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		speech.Timeout = *timeout
	}

	capture, err := parseOptionalIntEnv("SPEECH_CAPTURE_SECONDS")
	if err != nil {
		return err
	}
	if capture != nil {
		if *capture < 1 {
			return fmt.Errorf("invalid SPEECH_CAPTURE_SECONDS value %d: must be positive", *capture)
		}
		speech.CaptureSeconds = *capture
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT_MODE", speech.ConcurrentMode)
	if err != nil {
		return err
	}
	speech.ConcurrentMode = concurrent

	speech.AppID = getEnvOrDefault("SPEECH_APP_ID", speech.AppID)
	speech.APIKey = getEnvOrDefault("SPEECH_API_KEY", speech.APIKey)
	speech.AccessToken = getEnvOrDefault("SPEECH_ACCESS_TOKEN", speech.AccessToken)
	if speech.AccessToken == "" {
		speech.AccessToken = speech.APIKey
	}

	speech.Region = getEnvOrDefault("SPEECH_REGION", speech.Region)
	speech.BaseURL = getEnvOrDefault("SPEECH_BASE_URL", speech.BaseURL)
	speech.ASRModel = getEnvOrDefault("SPEECH_ASR_MODEL", speech.ASRModel)
	speech.ASRLanguage = getEnvOrDefault("SPEECH_ASR_LANGUAGE", speech.ASRLanguage)

	speech.Enabled = speech.AppID != "" && speech.AccessToken != ""
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

// parseOptionalDurationEnv 接受 "5s" 这类时长，也接受纯数字（按秒计）。
func parseOptionalDurationEnv(key string) (*time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		d := time.Duration(seconds) * time.Second
		return &d, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &d, nil
}
