package firerisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"fireview/internal/forecast"
	"fireview/internal/geo"
	"fireview/internal/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

const (
	HeaderExtent   = "x-extent-3857"
	HeaderScaleMin = "x-scale-min"
	HeaderScaleMax = "x-scale-max"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outbound requests at rps with the given burst. A
// non-positive rps disables the limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.With("component", "firerisk-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAvailableDates lists the dates that have data, each normalized to noon
// UTC so calendar-day comparisons do not shift with the local timezone.
func (c *Client) GetAvailableDates(ctx context.Context, index types.Index) ([]time.Time, error) {
	var apiResp AvailableDatesAPIResponse
	if err := c.getJSON(ctx, index, "/available_dates", nil, &apiResp); err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(apiResp.AvailableDates))
	seen := make(map[time.Time]bool, len(apiResp.AvailableDates))
	for _, s := range apiResp.AvailableDates {
		t, err := parseBackendTime(s)
		if err != nil {
			return nil, newMalformedError("Malformed response: invalid available date %q", s)
		}
		noon := forecast.NoonUTC(t)
		if seen[noon] {
			continue
		}
		seen[noon] = true
		dates = append(dates, noon)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return dates, nil
}

// GetLatestDate returns the most recent date with data, normalized to noon UTC.
func (c *Client) GetLatestDate(ctx context.Context, index types.Index) (time.Time, error) {
	var apiResp LatestDateAPIResponse
	if err := c.getJSON(ctx, index, "/latest_date", nil, &apiResp); err != nil {
		return time.Time{}, err
	}

	t, err := parseBackendTime(apiResp.LatestDate)
	if err != nil {
		return time.Time{}, newMalformedError("Malformed response: invalid latest_date %q", apiResp.LatestDate)
	}
	return forecast.NoonUTC(t), nil
}

// GetForecastSteps fetches the steps of date's run (ByForecast) or of date's
// calendar day (ByDate). The request base_time is date at UTC midnight.
func (c *Client) GetForecastSteps(ctx context.Context, index types.Index, mode types.Mode, date time.Time) (*types.StepList, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownMode, int(mode))
	}

	wireBase := forecast.StartOfDayUTC(date)
	q := url.Values{}
	q.Set("base_time", wireBase.Format(time.RFC3339))

	var apiResp StepsAPIResponse
	if err := c.getJSON(ctx, index, "/"+mode.String(), q, &apiResp); err != nil {
		return nil, err
	}

	if len(apiResp.ForecastTime) == 0 {
		return nil, &APIError{Message: forecast.NoStepsMessage}
	}

	baseTime := wireBase
	if apiResp.BaseTime != "" {
		parsed, err := parseBackendTime(apiResp.BaseTime)
		if err != nil {
			return nil, newMalformedError("Malformed response: invalid base_time %q", apiResp.BaseTime)
		}
		baseTime = parsed
	}

	seen := make(map[time.Time]bool, len(apiResp.ForecastTime))
	steps := make([]types.ForecastStep, 0, len(apiResp.ForecastTime))
	for _, s := range apiResp.ForecastTime {
		ft, err := parseBackendTime(s)
		if err != nil {
			return nil, newMalformedError("Malformed response: invalid forecast_time %q", s)
		}
		if seen[ft] {
			continue
		}
		seen[ft] = true
		steps = append(steps, types.ForecastStep{BaseTime: baseTime, ForecastTime: ft})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].ForecastTime.Before(steps[j].ForecastTime) })

	return &types.StepList{
		BaseTime:            baseTime,
		Steps:               steps,
		InitialForecastTime: steps[0].ForecastTime,
	}, nil
}

// GetHeatmapImage fetches the raster for the viewport bbox (EPSG:3857 CSV).
// The x-extent-3857 header is required; the scale headers are optional.
func (c *Client) GetHeatmapImage(ctx context.Context, index types.Index, mode types.Mode, baseTime, forecastTime time.Time, bbox string) (*HeatmapImage, error) {
	wireBase, wireForecast := forecast.WireTimes(mode, baseTime, forecastTime)

	q := url.Values{}
	q.Set("base_time", wireBase)
	q.Set("forecast_time", wireForecast)
	q.Set("bbox", bbox)

	resp, err := c.do(ctx, index, "/heatmap/image", q)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	rawExtent := resp.Header.Get(HeaderExtent)
	if rawExtent == "" {
		return nil, &APIError{Message: "Missing x-extent-3857 header"}
	}
	extent, err := geo.ParseExtent(rawExtent)
	if err != nil {
		return nil, newMalformedError("Malformed response: %v", err)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read heatmap body: %w", err)
	}

	mt := mimetype.Detect(blob)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, newMalformedError("Malformed response: heatmap body is %s, not an image", mt.String())
	}

	img := &HeatmapImage{
		Blob:        blob,
		ContentType: mt.String(),
		Extent:      extent,
		VMin:        parseOptionalFloat(resp.Header.Get(HeaderScaleMin)),
		VMax:        parseOptionalFloat(resp.Header.Get(HeaderScaleMax)),
	}

	c.logger.Debug("fetched heatmap image",
		"index", index,
		"bytes", len(blob),
		"extent", rawExtent,
	)

	return img, nil
}

// GetTooltipValue queries the value at point (EPSG:3857) for the same time
// pair the overlay uses.
func (c *Client) GetTooltipValue(ctx context.Context, index types.Index, mode types.Mode, baseTime, forecastTime time.Time, point orb.Point) (*TooltipAPIResponse, error) {
	wireBase, wireForecast := forecast.WireTimes(mode, baseTime, forecastTime)

	q := url.Values{}
	q.Set("base_time", wireBase)
	q.Set("forecast_time", wireForecast)
	q.Set("coords", strconv.FormatFloat(point.X(), 'f', -1, 64)+","+strconv.FormatFloat(point.Y(), 'f', -1, 64))

	var apiResp TooltipAPIResponse
	if err := c.getJSON(ctx, index, "/tooltip", q, &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

func (c *Client) GetTimeSeries(ctx context.Context, index types.Index, filter AggregateFilter) (*TimeSeriesAPIResponse, error) {
	var apiResp TimeSeriesAPIResponse
	if err := c.getJSON(ctx, index, "/time_series", aggregateQuery(filter), &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

func (c *Client) GetExpectedFires(ctx context.Context, index types.Index, filter AggregateFilter) (*ExpectedFiresAPIResponse, error) {
	var apiResp ExpectedFiresAPIResponse
	if err := c.getJSON(ctx, index, "/expected_fires", aggregateQuery(filter), &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

func (c *Client) GetExceedanceFrequency(ctx context.Context, index types.Index, filter AggregateFilter, thresholds []float64) (*ExceedanceAPIResponse, error) {
	q := aggregateQuery(filter)
	if len(thresholds) > 0 {
		parts := make([]string, len(thresholds))
		for i, th := range thresholds {
			parts[i] = strconv.FormatFloat(th, 'f', -1, 64)
		}
		q.Set("thresholds", strings.Join(parts, ","))
	}

	var apiResp ExceedanceAPIResponse
	if err := c.getJSON(ctx, index, "/exceedance_frequency", q, &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

// GetDifferenceMap fetches the gridded change between two runs.
func (c *Client) GetDifferenceMap(ctx context.Context, index types.Index, baseStart, baseEnd time.Time, bbox string) (*DifferenceMapAPIResponse, error) {
	q := url.Values{}
	q.Set("base_time_start", forecast.FormatMidnightUTC(baseStart))
	q.Set("base_time_end", forecast.FormatMidnightUTC(baseEnd))
	if bbox != "" {
		q.Set("bbox", bbox)
	}

	var apiResp DifferenceMapAPIResponse
	if err := c.getJSON(ctx, index, "/difference_map", q, &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

func (c *Client) GetForecastHorizon(ctx context.Context, index types.Index, bbox string) (*ForecastHorizonAPIResponse, error) {
	q := url.Values{}
	q.Set("format", "json")
	if bbox != "" {
		q.Set("bbox", bbox)
	}

	var apiResp ForecastHorizonAPIResponse
	if err := c.getJSON(ctx, index, "/forecast_horizon", q, &apiResp); err != nil {
		return nil, err
	}
	return &apiResp, nil
}

func aggregateQuery(filter AggregateFilter) url.Values {
	q := url.Values{}
	q.Set("format", "json")
	if filter.BBox != "" {
		q.Set("bbox", filter.BBox)
	}
	if !filter.Start.IsZero() {
		q.Set("start_base", forecast.FormatMidnightUTC(filter.Start))
	}
	if !filter.End.IsZero() {
		q.Set("end_base", forecast.FormatMidnightUTC(filter.End))
	}
	return q
}

func (c *Client) getJSON(ctx context.Context, index types.Index, path string, q url.Values, out any) error {
	resp, err := c.do(ctx, index, path, q)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("failed to decode response", "index", index, "path", path, "error", err)
		return newMalformedError("Malformed response: %v", err)
	}
	return nil
}

// do issues a GET against /api/{index}{path}. The caller closes the body of
// a successful response.
func (c *Client) do(ctx context.Context, index types.Index, path string, q url.Values) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/" + url.PathEscape(index.String()) + path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("fetching", "index", index, "url", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			c.logger.Debug("request aborted", "index", index, "path", path)
			return nil, ctx.Err()
		}
		c.logger.Error("request failed", "index", index, "path", path, "error", err)
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.logger.Error("API returned error",
			"index", index,
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, newStatusError(resp.StatusCode, strings.TrimSpace(string(body)), http.StatusText(resp.StatusCode))
	}

	return resp, nil
}

var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseBackendTime accepts the date and datetime shapes the backend emits.
// Values without a zone are UTC.
func parseBackendTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func parseOptionalFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}
