// Package climate derives site design temperatures from the Open-Meteo
// historical weather archive.
package climate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Open-Meteo historical archive endpoint
const DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

const dateLayout = "2006-01-02"

var (
	ErrInvalidLocation = errors.New("invalid site coordinates")
	ErrNoData          = errors.New("no temperature data for site")
)

// Client fetches daily temperature history from Open-Meteo
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new archive client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Day is one day of recorded temperature extremes
type Day struct {
	Date     time.Time `json:"date"`
	MaxTempC float64   `json:"max_temp_c"`
	MinTempC float64   `json:"min_temp_c"`
}

// archiveResponse represents the API response. Missing observations come back as null.
type archiveResponse struct {
	Daily struct {
		Time    []string   `json:"time"`
		MaxTemp []*float64 `json:"temperature_2m_max"`
		MinTemp []*float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

// Daily fetches daily max/min air temperatures for [start, end]. Days with a
// missing observation are skipped.
func (c *Client) Daily(ctx context.Context, lat, lon float64, start, end time.Time) ([]Day, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("%w: lat=%.4f lon=%.4f", ErrInvalidLocation, lat, lon)
	}

	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%.4f", lat))
	params.Add("longitude", fmt.Sprintf("%.4f", lon))
	params.Add("start_date", start.Format(dateLayout))
	params.Add("end_date", end.Format(dateLayout))
	params.Add("daily", "temperature_2m_max,temperature_2m_min")
	params.Add("timezone", "UTC")

	fullURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching temperature history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var ar archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	days := make([]Day, 0, len(ar.Daily.Time))
	for i := range ar.Daily.Time {
		if i >= len(ar.Daily.MaxTemp) || i >= len(ar.Daily.MinTemp) {
			break
		}
		if ar.Daily.MaxTemp[i] == nil || ar.Daily.MinTemp[i] == nil {
			continue
		}
		d, err := time.Parse(dateLayout, ar.Daily.Time[i])
		if err != nil {
			continue
		}
		days = append(days, Day{Date: d, MaxTempC: *ar.Daily.MaxTemp[i], MinTempC: *ar.Daily.MinTemp[i]})
	}
	return days, nil
}

// DesignTemperatures fetches the last `years` full calendar years before now and
// summarizes them with Summarize.
func (c *Client) DesignTemperatures(ctx context.Context, lat, lon float64, years int, now time.Time) (Temperatures, error) {
	if years < 1 {
		years = 1
	}
	end := time.Date(now.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
	start := time.Date(now.Year()-years, time.January, 1, 0, 0, 0, 0, time.UTC)

	days, err := c.Daily(ctx, lat, lon, start, end)
	if err != nil {
		return Temperatures{}, err
	}
	return Summarize(days)
}
