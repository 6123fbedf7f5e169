package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	twitterCreateTweetURL = "https://api.twitter.com/2/tweets"
	twitterSearchURL      = "https://api.twitter.com/2/tweets/search/recent"
	twitterTweetLookupURL = "https://api.twitter.com/2/tweets/"
)

// Typed SocialClient errors
var (
	ErrSocialRateLimited = errors.New("social client: rate limited")
	ErrSocialAuth        = errors.New("social client: authentication failed")
	ErrSocialDuplicate   = errors.New("social client: duplicate content")
	ErrSocialOther       = errors.New("social client: request failed")
)

// Engagement is the public metrics snapshot for a published post.
type Engagement struct {
	Likes    int
	Retweets int
}

// SearchedPost is one tweet returned by SearchRecent.
type SearchedPost struct {
	ExternalTweetID string
	AuthorID        string
	Text            string
	PublishedAt     time.Time
	Metrics         json.RawMessage
}

// SocialClient posts to, and reads engagement/news from, the primary
// microblog platform.
type SocialClient interface {
	PostMessage(ctx context.Context, text string) (externalID string, err error)
	GetEngagement(ctx context.Context, externalID string) (Engagement, error)
	SearchRecent(ctx context.Context, query string, sinceID string, maxResults int) ([]SearchedPost, error)
}

// twitterClient is the default SocialClient implementation: OAuth1
// user-context signing for writes, bearer app-only auth for reads.
type twitterClient struct {
	httpClient   *http.Client
	userAuth     *http.Client // OAuth1-signed client for posting
	bearerToken  string
	logger       *slog.Logger
}

// TwitterClientConfig configures a SocialClient backed by Twitter/X API v2.
type TwitterClientConfig struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
	Timeout           time.Duration
	Logger            *slog.Logger
}

// NewTwitterClient constructs a SocialClient.
func NewTwitterClient(cfg TwitterClientConfig) SocialClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	config := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	userAuth := config.Client(context.Background(), token)
	userAuth.Timeout = cfg.Timeout

	return &twitterClient{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		userAuth:    userAuth,
		bearerToken: cfg.BearerToken,
		logger:      cfg.Logger.With(slog.String("component", "social_client")),
	}
}

// PostMessage publishes text to the primary platform using OAuth1
// user-context auth, single attempt.
func (c *twitterClient) PostMessage(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSocialOther, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterCreateTweetURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSocialOther, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.userAuth.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSocialOther, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var decoded struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSocialOther, err)
		}
		return decoded.Data.ID, nil
	case http.StatusTooManyRequests:
		return "", ErrSocialRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrSocialAuth
	case http.StatusConflict:
		return "", ErrSocialDuplicate
	default:
		return "", fmt.Errorf("%w: status %d: %s", ErrSocialOther, resp.StatusCode, string(body))
	}
}

// GetEngagement reads public metrics for a previously published post,
// preferring app-only (bearer) auth when configured.
func (c *twitterClient) GetEngagement(ctx context.Context, externalID string) (Engagement, error) {
	reqURL := twitterTweetLookupURL + externalID + "?tweet.fields=public_metrics"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Engagement{}, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}

	client := c.httpClient
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	} else {
		client = c.userAuth
	}

	resp, err := client.Do(req)
	if err != nil {
		return Engagement{}, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Engagement{}, ErrSocialRateLimited
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Engagement{}, ErrSocialAuth
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Engagement{}, fmt.Errorf("%w: status %d: %s", ErrSocialOther, resp.StatusCode, string(body))
	}

	var decoded struct {
		Data struct {
			PublicMetrics struct {
				LikeCount   int `json:"like_count"`
				RetweetCount int `json:"retweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Engagement{}, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}

	return Engagement{Likes: decoded.Data.PublicMetrics.LikeCount, Retweets: decoded.Data.PublicMetrics.RetweetCount}, nil
}

// SearchRecent polls the recent-search endpoint for news ingestion
func (c *twitterClient) SearchRecent(ctx context.Context, query string, sinceID string, maxResults int) ([]SearchedPost, error) {
	if maxResults < 5 {
		maxResults = 5
	}
	if maxResults > 100 {
		maxResults = 100
	}

	values := url.Values{}
	values.Set("query", query)
	values.Set("max_results", strconv.Itoa(maxResults))
	values.Set("tweet.fields", "created_at,public_metrics,author_id")
	values.Set("expansions", "author_id")
	values.Set("user.fields", "username")
	if sinceID != "" {
		values.Set("since_id", sinceID)
	}

	reqURL := twitterSearchURL + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrSocialRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrSocialOther, resp.StatusCode, string(body))
	}

	var decoded struct {
		Data []struct {
			ID            string          `json:"id"`
			AuthorID      string          `json:"author_id"`
			Text          string          `json:"text"`
			CreatedAt     time.Time       `json:"created_at"`
			PublicMetrics json.RawMessage `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocialOther, err)
	}

	results := make([]SearchedPost, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		results = append(results, SearchedPost{
			ExternalTweetID: item.ID,
			AuthorID:        item.AuthorID,
			Text:            item.Text,
			PublishedAt:     item.CreatedAt,
			Metrics:         item.PublicMetrics,
		})
	}
	return results, nil
}
