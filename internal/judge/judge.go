// internal/judge/judge.go
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Verdict is the parsed result of grading one submission.
type Verdict struct {
	Correct  bool   `json:"correct"`
	Accuracy int    `json:"accuracy"`
	Graded   bool   `json:"graded"`
	Raw      string `json:"raw,omitempty"`
}

// Judge grades a code submission against expected output. Implementations
// call an external generative grader; failures must surface as errors so
// the caller can degrade to an ungraded verdict.
type Judge interface {
	Grade(ctx context.Context, problem, source, expected string) (Verdict, error)
}

var accuracyRe = regexp.MustCompile(`(?i)accuracy:\s*(\d+)`)

// ParseVerdict interprets the grader's free-text reply. The reply begins
// with CORRECT or INCORRECT (case-insensitive) and may embed an
// "Accuracy: N" score, which defaults to 0 when absent.
func ParseVerdict(text string) Verdict {
	v := Verdict{Graded: true, Raw: text}

	trimmed := strings.TrimSpace(text)
	upper := strings.ToUpper(trimmed)
	// INCORRECT contains CORRECT as a suffix; test the longer prefix first.
	switch {
	case strings.HasPrefix(upper, "INCORRECT"):
		v.Correct = false
	case strings.HasPrefix(upper, "CORRECT"):
		v.Correct = true
	default:
		v.Correct = false
	}

	if m := accuracyRe.FindStringSubmatch(trimmed); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			v.Accuracy = n
		}
	}
	return v
}

// Ungraded is the explicit degraded verdict used when the grader is
// unavailable: score 0, not counted against the ledger.
func Ungraded() Verdict {
	return Verdict{Graded: false}
}

// Client grades submissions via an HTTP generative endpoint.
type Client struct {
	url    string
	apiKey string
	client *http.Client
}

// NewClient reads JUDGE_URL and JUDGE_API_KEY from the environment. An
// empty URL yields a client whose Grade always errors, which callers
// degrade to Ungraded.
func NewClient() *Client {
	return &Client{
		url:    os.Getenv("JUDGE_URL"),
		apiKey: os.Getenv("JUDGE_API_KEY"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Grade submits the problem, source, and expected output and parses the
// grader's reply.
func (c *Client) Grade(ctx context.Context, problem, source, expected string) (Verdict, error) {
	if c.url == "" {
		return Verdict{}, fmt.Errorf("judge not configured")
	}

	prompt := fmt.Sprintf(
		"Grade this submission. Reply starting with CORRECT or INCORRECT and include \"Accuracy: N\" (0-100).\n\nProblem: %s\n\nExpected output:\n%s\n\nSubmission:\n%s",
		problem, expected, source)

	body, err := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	})
	if err != nil {
		return Verdict{}, err
	}

	url := c.url
	if c.apiKey != "" {
		url = fmt.Sprintf("%s?key=%s", c.url, c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Verdict{}, err
	}

	var reply struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Verdict{}, fmt.Errorf("judge response malformed: %w", err)
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return Verdict{}, fmt.Errorf("empty judge response")
	}

	return ParseVerdict(reply.Candidates[0].Content.Parts[0].Text), nil
}
