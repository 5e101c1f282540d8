// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"postgres://pguser:pgpass@db:5432/feedbackdb?sslmode=disable"`

	// Economy
	CostPerSubmission int64 `envconfig:"COST_PER_SUBMISSION" default:"1"`
	EarnPerReview     int64 `envconfig:"EARN_PER_REVIEW" default:"1"`
	SignupBonus       int64 `envconfig:"SIGNUP_BONUS" default:"3"`

	// Matching & lifecycle
	ReviewsRequired int           `envconfig:"REVIEWS_REQUIRED" default:"3"`
	AssignmentTTL   time.Duration `envconfig:"ASSIGNMENT_TTL" default:"48h"`
	MinReviewLength int           `envconfig:"MIN_REVIEW_LENGTH" default:"100"`

	// Expiry sweep schedule, standard cron syntax.
	SweepSpec string `envconfig:"SWEEP_SPEC" default:"*/5 * * * *"`
}

func (c *Config) Validate() error {
	if c.CostPerSubmission <= 0 {
		return fmt.Errorf("COST_PER_SUBMISSION must be > 0")
	}
	if c.EarnPerReview <= 0 {
		return fmt.Errorf("EARN_PER_REVIEW must be > 0")
	}
	if c.SignupBonus < 0 {
		return fmt.Errorf("SIGNUP_BONUS must be >= 0")
	}
	if c.ReviewsRequired <= 0 {
		return fmt.Errorf("REVIEWS_REQUIRED must be > 0")
	}
	if c.AssignmentTTL <= 0 {
		return fmt.Errorf("ASSIGNMENT_TTL must be > 0")
	}
	if c.MinReviewLength <= 0 {
		return fmt.Errorf("MIN_REVIEW_LENGTH must be > 0")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
