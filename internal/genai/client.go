// internal/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	commonerrors "cohort-workers/internal/common/errors"
	commonhttp "cohort-workers/internal/common/http"
	"cohort-workers/internal/common/logger"
)

// Config for the generation service endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
}

// Client calls the external generation service. It implements the
// QuestionService collaborator used by the follow-up orchestrator.
type Client struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No transport-level timeout; the per-call context bounds everything.
		client: commonhttp.NewClient(0),
		logger: log.WithFields(map[string]interface{}{
			"component": "genai",
		}),
	}
}

// GenerateQuestion submits an instruction and returns the cleaned question
// text. Retries transient failures with exponential backoff inside the
// caller's context deadline.
func (c *Client) GenerateQuestion(ctx context.Context, instruction string) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	requestBody := map[string]interface{}{
		"prompt":      instruction,
		"max_tokens":  c.config.MaxTokens,
		"temperature": c.config.Temperature,
	}
	body, _ := json.Marshal(requestBody)

	headers := map[string]string{}
	if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", commonerrors.NewLLMTimeoutError()
			}
		}

		resp, lastErr = c.client.PostJSON(ctx, c.config.BaseURL+"/api/ai/generate", headers, body)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", commonerrors.NewLLMTimeoutError()
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", commonerrors.NewLLMTimeoutError()
		}
		return "", commonerrors.NewQuestionGenerationFailedError(lastErr)
	}
	if resp == nil {
		return "", commonerrors.NewQuestionGenerationFailedError(errors.New("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", commonerrors.NewQuestionGenerationFailedError(fmt.Errorf("decode error: %v", err))
	}

	question := ExtractQuestion(apiResponse.Text)
	if question == "" {
		return "", commonerrors.NewQuestionGenerationFailedError(errors.New("empty generation payload"))
	}

	c.logger.Debug("question generated", map[string]interface{}{
		"length": len(question),
	})
	return question, nil
}

var quotedRe = regexp.MustCompile(`"([^"]+)"`)

// ExtractQuestion pulls the question out of a chatty model response: a
// quoted span wins, then the first sentence ending in a question mark, then
// the first sentence.
func ExtractQuestion(response string) string {
	response = strings.TrimSpace(response)
	if response == "" {
		return ""
	}

	if m := quotedRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}

	sentences := splitSentences(response)
	for _, s := range sentences {
		if strings.HasSuffix(s, "?") {
			return s
		}
	}
	if len(sentences) > 0 {
		return sentences[0]
	}
	return response
}

// splitSentences breaks on terminal punctuation, keeping a trailing '?' so
// question sentences stay recognizable.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		switch r {
		case '.', '!':
			if part := strings.TrimSpace(s[start:i]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		case '?':
			if part := strings.TrimSpace(s[start : i+1]); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
