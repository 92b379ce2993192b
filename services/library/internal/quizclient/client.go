// Package quizclient calls the quiz API over HTTP. Only listing is
// needed here; quiz creation and editing belong to the quiz editor.
package quizclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"chessacademy/pkg/domain"
)

// ErrNonJSON indicates the quiz API answered with a body that is not JSON.
var ErrNonJSON = errors.New("server returned non-JSON response")

// Client calls the quiz API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a quiz API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs a quiz API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type listQuizzesResponse struct {
	Quizzes []domain.QuizDraft `json:"quizzes"`
}

// ListQuizzes fetches the caller's quizzes in every status. Draft-only
// filtering is the bridge's concern.
func (c *Client) ListQuizzes(ctx context.Context, token string) ([]domain.QuizDraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quiz/get-quizzes.php", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var env struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrNonJSON
	}
	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = resp.Status
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}
	var out listQuizzesResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Quizzes, nil
}
