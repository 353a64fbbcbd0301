package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"quiz-session-service/internal/domain"
)

// Client requests AI-generated improvement tips from a remote feedback
// service. Failures are expected and handled by the caller's fallback.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type mistakePayload struct {
	Prompt      string `json:"prompt"`
	Chosen      string `json:"chosen,omitempty"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation"`
}

type tipsRequest struct {
	Age      int              `json:"age"`
	Language string           `json:"language"`
	Mistakes []mistakePayload `json:"mistakes"`
}

type tipsResponse struct {
	Tips []string `json:"tips"`
}

func (c *Client) GenerateFeedback(ctx context.Context, mistakes []domain.AnswerResult, age int, language string) ([]string, error) {
	payload := tipsRequest{Age: age, Language: language}
	for _, m := range mistakes {
		mp := mistakePayload{
			Prompt:      m.Prompt,
			Correct:     m.CorrectLabel,
			Explanation: m.Explanation,
		}
		if m.Chosen != nil {
			mp.Chosen = *m.Chosen
		}
		payload.Mistakes = append(payload.Mistakes, mp)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tips", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feedback service returned status %d", resp.StatusCode)
	}

	var decoded tipsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Tips) == 0 {
		return nil, fmt.Errorf("feedback service returned no tips")
	}
	return decoded.Tips, nil
}
