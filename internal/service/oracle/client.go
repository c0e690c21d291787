package oracle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// ScoreResult is the oracle's assessment of one document.
type ScoreResult struct {
	Score    int             `json:"score"`
	Analysis json.RawMessage `json:"analysis"`
}

// Scorer is the external scoring/conversation oracle. It is consumed
// as a black box: no retry or backoff lives behind this interface, the
// caller owns that policy. Documents are referenced by their storage
// path; the scoring service resolves the bytes itself.
type Scorer interface {
	ScoreDocument(ctx context.Context, documentRef, documentType string) (*ScoreResult, error)
	Converse(ctx context.Context, contextText, query string) (string, error)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// HTTPClient talks JSON over HTTP to the scoring service. Scores are
// cached per storage reference, so retrying a stuck analysis does not
// re-score documents the oracle has already seen.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	cache   *cache.Cache
	logger  *logger.Logger
}

func NewHTTPClient(cfg Config, log *logger.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		cache:   cache.New(ttl, 2*ttl),
		logger:  log,
	}
}

type scoreRequest struct {
	DocumentRef  string `json:"document_ref"`
	DocumentType string `json:"document_type"`
}

type converseRequest struct {
	Context string `json:"context"`
	Query   string `json:"query"`
}

type converseResponse struct {
	Reply string `json:"reply"`
}

func (c *HTTPClient) ScoreDocument(ctx context.Context, documentRef, documentType string) (*ScoreResult, error) {
	digest := sha256.Sum256([]byte(documentRef))
	key := hex.EncodeToString(digest[:])
	if cached, ok := c.cache.Get(key); ok {
		return cached.(*ScoreResult), nil
	}

	var result ScoreResult
	if err := c.post(ctx, "/v1/score", scoreRequest{DocumentRef: documentRef, DocumentType: documentType}, &result); err != nil {
		return nil, err
	}
	if result.Score < 0 || result.Score > 100 {
		return nil, fmt.Errorf("oracle returned score out of range: %d", result.Score)
	}

	c.cache.Set(key, &result, cache.DefaultExpiration)
	c.logger.Debug("document scored", "document_type", documentType, "score", result.Score)
	return &result, nil
}

func (c *HTTPClient) Converse(ctx context.Context, contextText, query string) (string, error) {
	var resp converseResponse
	if err := c.post(ctx, "/v1/converse", converseRequest{Context: contextText, Query: query}, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("oracle call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode oracle response: %w", err)
	}
	return nil
}
