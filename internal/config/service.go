package config

import "time"

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	ClientURL   string `yaml:"client_url"`

	// StripeWebhookSecret is optional: when empty, webhook payloads are
	// parsed unsigned (local development against the Stripe CLI). It must
	// always be set in production.
	StripeSecretKey     string `yaml:"stripe_secret_key"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`

	Supabase SupabaseConfig `yaml:"supabase"`
}

type SupabaseConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	ProjectURL string `yaml:"project_url"`
}

// WorkerConfig controls the webhook event processor.
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
}
