package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/localhub/internal/buildinfo"
	"github.com/darmiel/localhub/internal/core"
	"github.com/darmiel/localhub/internal/ident"
	"github.com/darmiel/localhub/internal/logging"
	"github.com/darmiel/localhub/internal/metrics"
)

const (
	DefaultPerPage = 30
	MaxPerPage     = 100

	// DefaultActivityName replaces a missing or null activity name.
	DefaultActivityName = "Activity"
)

// Activity is the subset of a Strava summary activity the UI shows.
type Activity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type,omitempty"`
	SportType          string   `json:"sport_type,omitempty"`
	StartDate          string   `json:"start_date,omitempty"`
	StartDateLocal     string   `json:"start_date_local,omitempty"`
	Distance           *float64 `json:"distance,omitempty"`
	MovingTime         *int64   `json:"moving_time,omitempty"`
	ElapsedTime        *int64   `json:"elapsed_time,omitempty"`
	TotalElevationGain *float64 `json:"total_elevation_gain,omitempty"`
}

// UnmarshalJSON defaults an absent name. An empty name is kept as sent.
func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity
	aux := struct {
		*plain
		Name *string `json:"name"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Name = DefaultActivityName
	if aux.Name != nil {
		a.Name = *aux.Name
	}
	return nil
}

// Client reads athlete activities with tokens from the Strava session manager.
type Client struct {
	tokens     core.AccessTokenSource
	httpClient *http.Client
	baseURL    string
}

func NewClient(tokens core.AccessTokenSource, httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = APIURL
	}
	return &Client{tokens: tokens, httpClient: httpClient, baseURL: baseURL}
}

// Paging clamps page to >= 1 and perPage to 1..100. A zero perPage selects the default.
func Paging(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Activities lists the athlete's most recent activities.
// A 401 from Strava means the grant is gone and is reported as not connected.
func (c *Client) Activities(ctx context.Context, p core.Principal, page, perPage int) ([]Activity, error) {
	if err := ident.RequireScoped(p); err != nil {
		return nil, err
	}
	token, err := c.tokens.AccessToken(ctx, p)
	if err != nil {
		return nil, err
	}

	page, perPage = Paging(page, perPage)
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/athlete/activities?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", buildinfo.UserAgent(logging.CorrelationCtx(ctx), p.UserID, AppID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderRequest(AppID, "activities", metrics.ResultError)
		return nil, &core.UpstreamError{Provider: AppID, Op: "activities", Body: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		metrics.ProviderRequest(AppID, "activities", metrics.ResultRejected)
		return nil, &core.NotConnectedError{App: AppID, Message: "Strava session expired. Please reconnect."}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ProviderRequest(AppID, "activities", metrics.ResultError)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Ctx(ctx).Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("strava.activities.failed")
		return nil, &core.UpstreamError{Provider: AppID, Op: "activities", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		metrics.ProviderRequest(AppID, "activities", metrics.ResultError)
		return nil, &core.UpstreamError{Provider: AppID, Op: "activities", StatusCode: resp.StatusCode, Body: "decoding response: " + err.Error()}
	}
	metrics.ProviderRequest(AppID, "activities", metrics.ResultOK)

	if activities == nil {
		activities = []Activity{}
	}
	return activities, nil
}
