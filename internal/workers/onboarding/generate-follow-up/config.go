// internal/workers/onboarding/generate-follow-up/config.go
package generatefollowup

import "time"

type Config struct {
	Timeout             time.Duration
	StateTTL            time.Duration
	MaxAttempts         int
	DirectStyleAttempt  int
	SimilarityThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		Timeout:             30 * time.Second,
		StateTTL:            time.Hour,
		MaxAttempts:         4,
		DirectStyleAttempt:  2,
		SimilarityThreshold: 0.7,
	}
}
