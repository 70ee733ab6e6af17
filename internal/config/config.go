package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	SessionSecret     string
	GinMode           string
	HTTPAddr          string
	OpenAIAPIKey      string
	OpenAIModel       string
	BroadcastChannel  string
	// ExtraTaskStatuses extends the built-in workflow statuses
	ExtraTaskStatuses []string
	Debug             bool
}

var defaults = map[string]any{
	"DB_DRIVER":         "mysql",
	"DB_HOST":           "localhost",
	"DB_PORT":           "3306",
	"DB_USER":           "taskuser",
	"DB_PASSWORD":       "taskpassword",
	"DB_NAME":           "task_management",
	"REDIS_HOST":        "localhost",
	"REDIS_PORT":        "6379",
	"REDIS_PASSWORD":    "",
	"SESSION_SECRET":    "default-secret-key-change-me",
	"GIN_MODE":          "debug",
	"HTTP_ADDR":         ":8080",
	"OPENAI_API_KEY":    "",
	"OPENAI_MODEL":      "gpt-4o",
	"BROADCAST_CHANNEL": "taskflow:invalidate",
	"TASK_STATUSES":     "",
	"DEBUG":             false,
}

// Load reads configuration from the environment, after an optional .env file.
func Load() *Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	return &Config{
		DBDriver:          v.GetString("DB_DRIVER"),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		RedisHost:         v.GetString("REDIS_HOST"),
		RedisPort:         v.GetString("REDIS_PORT"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		GinMode:           v.GetString("GIN_MODE"),
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		BroadcastChannel:  v.GetString("BROADCAST_CHANNEL"),
		ExtraTaskStatuses: splitList(v.GetString("TASK_STATUSES")),
		Debug:             v.GetBool("DEBUG"),
	}
}

// splitList parses a comma separated value, dropping blank entries
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
