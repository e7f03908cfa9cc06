package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/suPer8Hu/brainstorm-chat/internal/ai"
)

type Config struct {
	HTTPAddr string

	// AI provider
	OpenRouterBaseURL       string
	OpenRouterAPIKey        string
	OpenRouterModel         string
	OpenRouterSiteURL       string
	OpenRouterAppName       string
	OpenRouterHeaderTimeout time.Duration
	CompleteOnEOF           bool

	ChatContextWindowSize int
	ChatSystemPrompt      string

	// run journal; empty DSN disables it
	JournalDSN string

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int
}

func Load() Config {
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	openRouterBaseURL := os.Getenv("OPENROUTER_BASE_URL")
	if openRouterBaseURL == "" {
		openRouterBaseURL = ai.DefaultBaseURL
	}
	openRouterModel := os.Getenv("OPENROUTER_MODEL")
	if openRouterModel == "" {
		openRouterModel = ai.DefaultModel
	}
	appName := os.Getenv("OPENROUTER_APP_NAME")
	if appName == "" {
		appName = "Brainstorm Chat"
	}

	headerTimeout := 30 * time.Second
	if v := os.Getenv("OPENROUTER_HEADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			headerTimeout = d
		}
	}

	completeOnEOF := false
	if v := os.Getenv("OPENROUTER_COMPLETE_ON_EOF"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			completeOnEOF = b
		}
	}

	windowSize := 20
	if v := os.Getenv("CHAT_CONTEXT_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			windowSize = n
		}
	}

	// rabbitMQ config; RABBIT_URL stays empty unless set so the server
	// writes runs straight to the journal by default
	rabbitQueue := os.Getenv("RABBIT_QUEUE")
	if rabbitQueue == "" {
		rabbitQueue = "chat_runs"
	}
	concurrency := 2
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			concurrency = min(n, 50)
		}
	}

	return Config{
		HTTPAddr: httpAddr,

		OpenRouterBaseURL:       openRouterBaseURL,
		OpenRouterAPIKey:        os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:         openRouterModel,
		OpenRouterSiteURL:       os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName:       appName,
		OpenRouterHeaderTimeout: headerTimeout,
		CompleteOnEOF:           completeOnEOF,

		ChatContextWindowSize: windowSize,
		ChatSystemPrompt:      os.Getenv("CHAT_SYSTEM_PROMPT"),

		JournalDSN: os.Getenv("JOURNAL_DSN"),

		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitQueue:       rabbitQueue,
		WorkerConcurrency: concurrency,
	}
}

// AIConfig maps the provider settings onto the aggregator's configuration.
func (c Config) AIConfig(logger *log.Logger) ai.Config {
	return ai.Config{
		BaseURL:       c.OpenRouterBaseURL,
		APIKey:        c.OpenRouterAPIKey,
		Model:         c.OpenRouterModel,
		SiteURL:       c.OpenRouterSiteURL,
		AppName:       c.OpenRouterAppName,
		HeaderTimeout: c.OpenRouterHeaderTimeout,
		CompleteOnEOF: c.CompleteOnEOF,
		Logger:        logger,
	}
}
