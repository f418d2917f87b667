package dice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BCDiceClient 呼叫 BCDice-API v2
type BCDiceClient struct {
	baseURL string
	client  *http.Client
}

func NewBCDiceClient(baseURL string, timeout time.Duration) *BCDiceClient {
	return &BCDiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type bcdiceRollResponse struct {
	OK   bool   `json:"ok"`
	Text string `json:"text"`
}

type bcdiceSystemsResponse struct {
	GameSystem []GameSystem `json:"game_system"`
}

func (c *BCDiceClient) Roll(ctx context.Context, system, command string) (Outcome, error) {
	if strings.TrimSpace(command) == "" {
		return Outcome{}, nil
	}
	endpoint := fmt.Sprintf("%s/v2/game_system/%s/roll?command=%s",
		c.baseURL, url.PathEscape(system), url.QueryEscape(command))

	var res bcdiceRollResponse
	status, err := c.getJSON(ctx, endpoint, &res)
	if err != nil {
		return Outcome{}, err
	}
	// 非擲骰指令會回 400 與 ok=false
	if status == http.StatusBadRequest || !res.OK {
		return Outcome{}, nil
	}
	return Outcome{OK: true, Text: strings.TrimSpace(res.Text)}, nil
}

func (c *BCDiceClient) Systems(ctx context.Context) ([]GameSystem, error) {
	var res bcdiceSystemsResponse
	status, err := c.getJSON(ctx, c.baseURL+"/v2/game_system", &res)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list game systems: status %d: %w", status, ErrUnavailable)
	}
	return res.GameSystem, nil
}

func (c *BCDiceClient) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnavailable)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode dice response: %w", err)
	}
	return resp.StatusCode, nil
}
