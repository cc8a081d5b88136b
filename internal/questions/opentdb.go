package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"time"

	"trivia-pool-bot/internal/domain"
)

const defaultTriviaTimeout = 10 * time.Second

// TriviaClient fetches general-knowledge items from an Open-Trivia-compatible
// HTTP API. Failures are retryable by the caller, never fatal.
type TriviaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewTriviaClient(baseURL string) *TriviaClient {
	return &TriviaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultTriviaTimeout,
		},
	}
}

type triviaResult struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type triviaResponse struct {
	ResponseCode int            `json:"response_code"`
	Results      []triviaResult `json:"results"`
}

// Fetch requests up to n multiple-choice items. The correct answer is placed
// at a caller-controlled slot later; here it is always option 0 and the
// composite source shuffles options before use.
func (c *TriviaClient) Fetch(ctx context.Context, n int) ([]domain.Question, error) {
	url := fmt.Sprintf("%s/api.php?amount=%d&type=multiple", c.baseURL, n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build trivia request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trivia questions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trivia API returned status %d", resp.StatusCode)
	}

	var payload triviaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode trivia response: %w", err)
	}
	if payload.ResponseCode != 0 {
		return nil, fmt.Errorf("trivia API response code %d", payload.ResponseCode)
	}

	items := make([]domain.Question, 0, len(payload.Results))
	for _, result := range payload.Results {
		if result.CorrectAnswer == "" || len(result.IncorrectAnswers) == 0 {
			continue
		}
		options := make([]string, 0, len(result.IncorrectAnswers)+1)
		options = append(options, html.UnescapeString(result.CorrectAnswer))
		for _, wrong := range result.IncorrectAnswers {
			options = append(options, html.UnescapeString(wrong))
		}
		items = append(items, domain.Question{
			Text:          html.UnescapeString(result.Question),
			Options:       options,
			CorrectOption: 0,
		})
	}
	return items, nil
}
