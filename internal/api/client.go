package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"fiddlegg/internal/logging"
)

const (
	// DefaultBaseURL is where the backend listens in development
	DefaultBaseURL = "http://localhost:3333/api"

	// DefaultTimeout bounds every backend call
	DefaultTimeout = 10 * time.Second
)

// Client talks to the FiddleGG backend REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets a custom timeout for backend requests
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a new backend client with the given options
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "api")
	return c
}

// SearchUser looks a summoner up by Riot ID (gameName#tagLine)
func (c *Client) SearchUser(ctx context.Context, gameName, tagLine string) (*Summoner, error) {
	path := fmt.Sprintf("/league/searchUser/%s/%s", url.PathEscape(gameName), url.PathEscape(tagLine))

	var summoner Summoner
	if err := c.doRequest(ctx, path, nil, &summoner); err != nil {
		return nil, err
	}
	return &summoner, nil
}

// RankProfile fetches the ranked entries of a summoner id
func (c *Client) RankProfile(ctx context.Context, summonerID string) ([]RankEntry, error) {
	path := "/league/getRankProfile/" + url.PathEscape(summonerID)

	var resp rankResponse
	if err := c.doRequest(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rank, nil
}

// Matches fetches one page of match history starting at start
func (c *Client) Matches(ctx context.Context, puuid string, start, count int) (*MatchPage, error) {
	path := "/league/searchMatchs/" + url.PathEscape(puuid)
	query := url.Values{}
	query.Set("start", strconv.Itoa(start))
	query.Set("count", strconv.Itoa(count))

	var page MatchPage
	if err := c.doRequest(ctx, path, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ChampionMastery fetches masteries ordered by descending points
func (c *Client) ChampionMastery(ctx context.Context, puuid string) ([]Mastery, error) {
	path := "/league/championMastery/" + url.PathEscape(puuid)

	var resp masteryResponse
	if err := c.doRequest(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Mastery, nil
}

// doRequest performs a GET and decodes the JSON body into result
func (c *Client) doRequest(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.WithField("path", path).Debug("API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: GET %s", ErrTimeout, path)
		}
		return fmt.Errorf("%w: GET %s: %v", ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Path: path}
		var body struct {
			Message string `json:"message"`
		}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
			_ = json.Unmarshal(data, &body)
		}
		se.Message = body.Message

		entry := c.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode})
		if resp.StatusCode == http.StatusTooManyRequests {
			entry.Warn("API rate limit reached")
		} else {
			entry.Error("API error")
		}
		return se
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrDecode, path, err)
	}

	c.log.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Debug("API response")
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
