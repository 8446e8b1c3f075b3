package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

// Config for the OpenAI-compatible chat/completions client. The default
// endpoint is OpenRouter.
type Config struct {
	APIKey       string        // if empty, falls back to env OPENROUTER_API_KEY
	BaseURL      string        // default https://openrouter.ai/api/v1
	Timeout      time.Duration // per HTTP attempt
	RateLimitRPS float64       // 0 disables client-side limiting
	Retry        llm.RetryPolicy
	AppName      string // sent as X-Title
	AppURL       string // sent as HTTP-Referer
}

type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *rate.Limiter
	endpoint string
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if cfg.AppName == "" {
		cfg.AppName = "invoice-scanner"
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(1, int(cfg.RateLimitRPS)))
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		logger:   logger,
	}
}
