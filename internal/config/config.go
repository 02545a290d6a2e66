package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"gwi.com/prompt-relay/internal/llm"
)

type Config struct {
	GoogleAPIKey string
	GeminiModel  string

	HuggingFaceToken     string
	HuggingFaceBaseURL   string
	HuggingFaceModel     string
	HuggingFaceMaxTokens int

	AnthropicAPIKey string
	ClaudeModel     string
	ClaudeMaxTokens int

	// SecondaryProviders lists the batch participants in emission order.
	SecondaryProviders []string

	DatabaseURL string
	SecretKey   string
	AuthEnabled bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	HTTPPort string
	LogLevel string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"port":         "http_port",
	"database-url": "database_url",
	"log-level":    "log_level",
	"auth":         "auth_enabled",
}

// LoadConfig reads .env (if present), the environment and, when flags is not
// nil, the bound command-line flags. Flags win over the environment.
func LoadConfig(flags *pflag.FlagSet) *Config {
	loaded := godotenv.Load() == nil

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	return &Config{
		GoogleAPIKey: v.GetString("google_api_key"),
		GeminiModel:  v.GetString("gemini_model"),

		HuggingFaceToken:     v.GetString("huggingface_api_token"),
		HuggingFaceBaseURL:   v.GetString("hf_base_url"),
		HuggingFaceModel:     v.GetString("hf_model"),
		HuggingFaceMaxTokens: v.GetInt("hf_max_tokens"),

		AnthropicAPIKey: v.GetString("anthropic_api_key"),
		ClaudeModel:     v.GetString("claude_model"),
		ClaudeMaxTokens: v.GetInt("claude_max_tokens"),

		SecondaryProviders: splitList(v.GetString("secondary_providers")),

		DatabaseURL: v.GetString("database_url"),
		SecretKey:   v.GetString("secret_key"),
		AuthEnabled: v.GetBool("auth_enabled"),

		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetInt("smtp_port"),
		SMTPUsername: v.GetString("smtp_username"),
		SMTPPassword: v.GetString("smtp_password"),
		MailFrom:     v.GetString("mail_from"),

		HTTPPort: v.GetString("http_port"),
		LogLevel: strings.ToUpper(v.GetString("log_level")),

		EnvFileLoaded: loaded,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gemini_model", "gemini-1.5-flash-latest")
	v.SetDefault("hf_base_url", "https://router.huggingface.co/v1/")
	v.SetDefault("hf_model", "mistralai/Mistral-7B-Instruct-v0.2")
	v.SetDefault("hf_max_tokens", 250)
	v.SetDefault("claude_model", "claude-3-5-haiku-latest")
	v.SetDefault("claude_max_tokens", 1024)
	v.SetDefault("secondary_providers", llm.ProviderHuggingFace)
	v.SetDefault("database_url", "sqlite://local_database.db")
	v.SetDefault("auth_enabled", true)
	v.SetDefault("smtp_port", 587)
	v.SetDefault("http_port", "8080")
	v.SetDefault("log_level", "INFO")
}

// Validate lists configuration problems. None of them stop the server: each
// one degrades the feature it belongs to.
func (c *Config) Validate() []string {
	var problems []string

	if c.GoogleAPIKey == "" {
		problems = append(problems, "GOOGLE_API_KEY is not set; Gemini calls will fail")
	}
	for _, p := range c.SecondaryProviders {
		switch p {
		case llm.ProviderHuggingFace:
			if c.HuggingFaceToken == "" {
				problems = append(problems, "HUGGINGFACE_API_TOKEN is not set; Hugging Face calls will fail")
			}
		case llm.ProviderClaude:
			if c.AnthropicAPIKey == "" {
				problems = append(problems, "ANTHROPIC_API_KEY is not set; Claude calls will fail")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown secondary provider %q is ignored", p))
		}
	}
	if c.AuthEnabled {
		if c.SecretKey == "" {
			problems = append(problems, "SECRET_KEY is not set; sessions will not survive a restart")
		}
		if c.SMTPHost == "" {
			problems = append(problems, "SMTP_HOST is not set; verification emails cannot be sent")
		}
	}
	return problems
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
