package icd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/anukritich/AyushSetu/internal/config"
	"github.com/anukritich/AyushSetu/internal/logger"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("icd client credentials not configured")
	ErrUnauthorized  = errors.New("icd api rejected credentials")
)

// tokenSkew 提前刷新 token，避免请求途中过期
const tokenSkew = 30 * time.Second

// Entity ICD-11 MMS 搜索结果（flatResults）
type Entity struct {
	ID    string  `json:"id"`
	Code  string  `json:"code"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type searchEntity struct {
	ID      string  `json:"id"`
	TheCode string  `json:"theCode"`
	Code    string  `json:"code"`
	Title   string  `json:"title"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Error               bool           `json:"error"`
	ErrorMessage        string         `json:"errorMessage"`
	DestinationEntities []searchEntity `json:"destinationEntities"`
}

// Client WHO ICD-11 API 客户端
// - client_credentials 获取 token（scope=icdapi_access），过期前复用
// - MMS search：flatResults + flexisearch
type Client struct {
	httpClient   *resty.Client
	clientID     string
	clientSecret string
	tokenURL     string
	searchURL    string
	logger       *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewClient(cfg config.ICDConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:   httpClient,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     cfg.TokenURL,
		searchURL:    cfg.SearchURL,
		logger:       logger.OrNop(log),
		now:          time.Now,
	}
}

// accessToken 返回缓存的 token，过期（含 tokenSkew）后重新申请
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	var tok tokenResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
			"grant_type":    "client_credentials",
			"scope":         "icdapi_access",
		}).
		SetResult(&tok).
		Post(c.tokenURL)
	if err != nil {
		c.logger.Error("ICD token request failed", zap.Error(err))
		return "", fmt.Errorf("icd token request: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusBadRequest {
		return "", fmt.Errorf("icd token request: status %d: %w", resp.StatusCode(), ErrUnauthorized)
	}
	if resp.IsError() {
		return "", fmt.Errorf("icd token request: status %d", resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("icd token request: no access_token in response")
	}

	c.token = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenSkew)
	c.logger.Debug("ICD token refreshed", zap.Int("expires_in", tok.ExpiresIn))
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// Search 在 ICD-11 MMS 中搜索 query；token 被拒（401）时刷新一次后重试
func (c *Client) Search(ctx context.Context, query string) ([]Entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}

		var body searchResponse
		resp, err := c.httpClient.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("API-Version", "v2").
			SetHeader("Accept-Language", "en").
			SetQueryParams(map[string]string{
				"q":              query,
				"flatResults":    "true",
				"useFlexisearch": "true",
			}).
			SetResult(&body).
			Get(c.searchURL)
		if err != nil {
			c.logger.Error("ICD search request failed", zap.String("query", query), zap.Error(err))
			return nil, fmt.Errorf("icd search: %w", err)
		}
		if resp.StatusCode() == http.StatusUnauthorized {
			c.invalidateToken()
			if attempt == 0 {
				continue
			}
			return nil, fmt.Errorf("icd search: %w", ErrUnauthorized)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("icd search: status %d", resp.StatusCode())
		}
		if body.Error {
			return nil, fmt.Errorf("icd search: %s", body.ErrorMessage)
		}

		out := make([]Entity, 0, len(body.DestinationEntities))
		for _, e := range body.DestinationEntities {
			out = append(out, toEntity(e))
		}
		c.logger.Debug("ICD search done", zap.String("query", query), zap.Int("results", len(out)))
		return out, nil
	}
}

var markup = regexp.MustCompile(`<[^>]*>`)

func toEntity(e searchEntity) Entity {
	code := e.Code
	if code == "" {
		code = e.TheCode
	}
	title := e.Title
	if title == "" {
		title = e.Label
	}
	return Entity{
		ID:    e.ID,
		Code:  code,
		Title: strings.TrimSpace(markup.ReplaceAllString(title, "")),
		Score: e.Score,
	}
}
