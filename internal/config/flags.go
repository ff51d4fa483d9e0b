package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bz888/solver/internal/speech"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	ModeAuto   = "auto"
	ModeStream = "stream"
	ModeJSON   = "json"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Endpoint   string       `yaml:"endpoint"`
	Mode       string       `yaml:"mode"`
	StrictUTF8 bool         `yaml:"strict_utf8"`
	PrefsPath  string       `yaml:"prefs_path"`
	Page       string       `yaml:"page"`
	Compact    bool         `yaml:"compact"`
	Dev        bool         `yaml:"dev"`
	LogPath    string       `yaml:"log_path"`
	Speech     SpeechConfig `yaml:"speech"`
	Server     ServerConfig `yaml:"server"`
}

// SpeechConfig configures transcription of spoken problems.
type SpeechConfig struct {
	Endpoint string `yaml:"endpoint"`
	Lang     string `yaml:"lang"`
	Key      string `yaml:"-"`
}

// ServerConfig configures the generation service run by "solver serve".
type ServerConfig struct {
	Addr              string  `yaml:"addr"`
	Provider          string  `yaml:"provider"`
	Model             string  `yaml:"model"`
	Temperature       float64 `yaml:"temperature"`
	PromptFile        string  `yaml:"prompt_file"`
	Extract           bool    `yaml:"extract"`
	ExtractPromptFile string  `yaml:"extract_prompt_file"`
	OllamaHost        string  `yaml:"ollama_host"`
	OpenAIHost        string  `yaml:"openai_host"`
	OpenAIKey         string  `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Endpoint:  "http://localhost:8000/upload",
		Mode:      ModeAuto,
		PrefsPath: filepath.Join(configDir(), "prefs.yaml"),
		Speech: SpeechConfig{
			Endpoint: speech.DefaultGoogleEndpoint,
			Lang:     "en-US",
		},
		Server: ServerConfig{
			Addr:        ":8000",
			Provider:    ProviderOllama,
			Model:       "qwen2.5-coder:32b",
			Temperature: 0,
			PromptFile:  "prompt.txt",
			OllamaHost:  "localhost:11434",
			OpenAIHost:  "api.openai.com",
		},
	}
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "solver")
	}
	return ".solver"
}

// Load builds a Config from defaults, the YAML file at path (if present),
// and then .env plus the process environment. Flags are applied on top by
// the caller through BindFlags.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	// a missing .env is normal
	_ = godotenv.Load()
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Endpoint, "SOLVER_ENDPOINT")
	setString(&c.Mode, "SOLVER_MODE")
	setString(&c.PrefsPath, "SOLVER_PREFS")
	setString(&c.Page, "SOLVER_PAGE")
	setString(&c.LogPath, "SOLVER_LOG_PATH")
	setString(&c.Server.Addr, "SOLVER_ADDR")
	setString(&c.Server.Provider, "SOLVER_PROVIDER")
	setString(&c.Server.Model, "SOLVER_MODEL")
	setString(&c.Server.PromptFile, "SOLVER_PROMPT_FILE")
	setString(&c.Server.OllamaHost, "OLLAMA_HOST")
	setString(&c.Server.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.Speech.Endpoint, "SOLVER_SPEECH_ENDPOINT")
	setString(&c.Speech.Lang, "SOLVER_SPEECH_LANG")
	setString(&c.Speech.Key, "API_KEY")

	if v, err := strconv.ParseBool(os.Getenv("SOLVER_STRICT_UTF8")); err == nil {
		c.StrictUTF8 = v
	}
	if v, err := strconv.ParseBool(os.Getenv("SOLVER_DEV")); err == nil {
		c.Dev = v
	}
	if v, err := strconv.ParseBool(os.Getenv("SOLVER_EXTRACT")); err == nil {
		c.Server.Extract = v
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// BindFlags registers the client-side flags shared by every command.
func (c *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "Solution service upload URL")
	flags.BoolVar(&c.Dev, "dev", c.Dev, "Development mode")
	flags.StringVar(&c.LogPath, "log-path", c.LogPath, "Directory to save the log file in")
	flags.StringVar(&c.PrefsPath, "prefs", c.PrefsPath, "Preferences file")
	flags.StringVar(&c.Page, "page", c.Page, "Problem page to solve: a file, a URL or - for stdin")
}

// BindFetchFlags registers flags that control how a solution is fetched.
func (c *Config) BindFetchFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Mode, "mode", c.Mode, "Response handling: auto, stream or json")
	flags.BoolVar(&c.StrictUTF8, "strict-utf8", c.StrictUTF8, "Fail on invalid UTF-8 in streamed responses")
	flags.BoolVar(&c.Compact, "compact", c.Compact, "Convert page markup to markdown before sending")
}

// BindSpeechFlags registers flags for transcribing audio problems.
func (c *Config) BindSpeechFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Speech.Endpoint, "speech-endpoint", c.Speech.Endpoint, "Speech recogniser URL")
	flags.StringVar(&c.Speech.Lang, "speech-lang", c.Speech.Lang, "Spoken language of audio problems")
}

// BindServerFlags registers flags for the generation service.
func (c *Config) BindServerFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "Listen address")
	flags.StringVar(&c.Server.Provider, "provider", c.Server.Provider, "LLM provider: ollama or openai")
	flags.StringVar(&c.Server.Model, "model", c.Server.Model, "Model name")
	flags.Float64Var(&c.Server.Temperature, "temperature", c.Server.Temperature, "Sampling temperature")
	flags.StringVar(&c.Server.PromptFile, "prompt-file", c.Server.PromptFile, "System prompt file")
	flags.StringVar(&c.Server.OllamaHost, "ollama-host", c.Server.OllamaHost, "Ollama host:port")
	flags.BoolVar(&c.Server.Extract, "extract", c.Server.Extract, "Extract the problem from the page before solving it")
	flags.StringVar(&c.Server.ExtractPromptFile, "extract-prompt-file", c.Server.ExtractPromptFile, "Extraction prompt file (default: built-in prompt)")
}

// Overlay re-applies every flag the user set explicitly in parsed onto c,
// so that command line flags win over the config file and environment.
func (c *Config) Overlay(parsed *pflag.FlagSet) error {
	own := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	c.BindFlags(own)
	c.BindFetchFlags(own)
	c.BindSpeechFlags(own)
	c.BindServerFlags(own)

	var err error
	parsed.Visit(func(f *pflag.Flag) {
		if err != nil || own.Lookup(f.Name) == nil {
			return
		}
		if setErr := own.Set(f.Name, f.Value.String()); setErr != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, setErr)
		}
	})
	return err
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeStream, ModeJSON:
	default:
		return fmt.Errorf("invalid mode %q: want auto, stream or json", c.Mode)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: need an absolute http(s) URL", c.Endpoint)
	}
	return nil
}

func (c *Config) ValidateServer() error {
	switch c.Server.Provider {
	case ProviderOllama:
	case ProviderOpenAI:
		if c.Server.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Server.Provider)
	}
	if c.Server.Model == "" {
		return errors.New("model is required")
	}
	return nil
}
