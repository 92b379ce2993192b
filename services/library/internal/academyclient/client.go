// Package academyclient calls the legacy academy PHP backend over HTTP.
// It is the single choke point for outbound requests: bearer auth, JSON
// codec, and failure normalization live here. There is no caching and no
// retry; every call is at most one attempt and failures surface to the
// caller.
package academyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chessacademy/pkg/domain"
)

// ErrNonJSON indicates the backend answered with a body that is not JSON.
var ErrNonJSON = errors.New("server returned non-JSON response")

// Client calls the academy backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an academy backend error response: a non-2xx status
// or an explicit success:false envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an academy backend client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// GameFilters selects a slice of the game library. Zero-valued fields are
// omitted from the query rather than sent as empty params.
type GameFilters struct {
	Search     string
	Category   domain.GameCategory
	PublicOnly bool
	UserOnly   bool
	Page       int
	Limit      int
}

const defaultListLimit = 500

type listGamesResponse struct {
	Games []domain.GameRecord `json:"games"`
	Total int                 `json:"total"`
}

// ListGames fetches the whole filtered game collection using the
// caller's bearer token. The backend pages at defaultListLimit, so the
// client keeps requesting follow-up pages until the reported total is
// collected; pagination downstream is purely client-side. Returns the
// records plus the server-side total count.
func (c *Client) ListGames(ctx context.Context, token string, f GameFilters) ([]domain.GameRecord, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var games []domain.GameRecord
	total := 0
	for {
		q := url.Values{}
		if s := strings.TrimSpace(f.Search); s != "" {
			q.Set("search", s)
		}
		if f.Category != "" {
			q.Set("category", string(f.Category))
		}
		if f.PublicOnly {
			q.Set("public_only", "1")
		}
		if f.UserOnly {
			q.Set("user_only", "1")
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(limit))

		var resp listGamesResponse
		if err := c.doJSON(ctx, http.MethodGet, "/chess/get-games.php", token, q, nil, &resp); err != nil {
			return nil, 0, err
		}
		games = append(games, resp.Games...)
		total = resp.Total
		// An empty page also ends the loop so a backend that reports a
		// total it never serves cannot spin us forever.
		if len(games) >= total || len(resp.Games) == 0 {
			return games, total, nil
		}
		page++
	}
}

type gameDetailResponse struct {
	Game *domain.GameRecord `json:"game"`
	Data *domain.GameRecord `json:"data"`
}

// GetGame fetches one hydrated record by id. The detail endpoint has
// shipped several response shapes over time, so the record may arrive
// under "game", "data", or at the top level, and the movetext under a
// handful of field names; ExtractPGNField resolves the latter.
func (c *Client) GetGame(ctx context.Context, token string, id int) (domain.GameRecord, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/chess/get-game.php", token, q, nil, &raw); err != nil {
		return domain.GameRecord{}, err
	}

	rec := domain.GameRecord{}
	var wrapper gameDetailResponse
	if err := json.Unmarshal(raw, &wrapper); err == nil {
		switch {
		case wrapper.Game != nil:
			rec = *wrapper.Game
		case wrapper.Data != nil:
			rec = *wrapper.Data
		default:
			_ = json.Unmarshal(raw, &rec)
		}
	}
	if rec.ID == 0 {
		rec.ID = id
	}
	if pgn := ExtractPGNField(raw); pgn != "" {
		rec.PGNContent = pgn
	}
	return rec, nil
}

// RecordView reports that a game was viewed. Callers treat this as
// fire-and-forget telemetry; the client itself still surfaces errors so
// the caller can decide to swallow them.
func (c *Client) RecordView(ctx context.Context, token string, pgnID int) error {
	payload := map[string]any{
		"pgn_id":    pgnID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	return c.doJSON(ctx, http.MethodPost, "/chess/record-view.php", token, nil, payload, nil)
}

// envelope is the academy backend response convention: success:false or a
// non-2xx status means failure, with "message" carrying user-facing text.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ErrNonJSON
	}
	if resp.StatusCode >= 400 || (env.Success != nil && !*env.Success) {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
