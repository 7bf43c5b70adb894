package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"postqueue/internal/config"
	"postqueue/internal/domain"
	"postqueue/internal/ports"
	"strings"
)

// HTTPPublisher calls the publishing service that owns platform credentials.
type HTTPPublisher struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ ports.Publisher = (*HTTPPublisher)(nil)

func NewHTTP(cfg config.Publisher) *HTTPPublisher {
	return &HTTPPublisher{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type publishReq struct {
	UserID    string `json:"userId"`
	ContentID string `json:"contentId"`
	AccountID string `json:"accountId"`
}

func (p *HTTPPublisher) Publish(ctx context.Context, userID, contentID, accountID string) (domain.PublishResult, error) {
	body, err := json.Marshal(publishReq{UserID: userID, ContentID: contentID, AccountID: accountID})
	if err != nil {
		return domain.PublishResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/publish", bytes.NewReader(body))
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.PublishResult{}, fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.PublishResult{}, fmt.Errorf("publisher returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var res domain.PublishResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.PublishResult{}, fmt.Errorf("decode publish response: %w", err)
	}
	return res, nil
}
