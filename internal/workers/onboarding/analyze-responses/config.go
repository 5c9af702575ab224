// internal/workers/onboarding/analyze-responses/config.go
package analyzeresponses

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
