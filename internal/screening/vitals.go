package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrNoVitals reports an empty sensor channel.
var ErrNoVitals = errors.New("screening: no vitals data available")

// VitalsClient reads the latest sensor sample.
type VitalsClient interface {
	Latest(ctx context.Context) (VitalSigns, error)
}

// FeedVitalsClient reads a ThingSpeak-style channel feed where field1 is
// heart rate and field2 is blood oxygen saturation.
type FeedVitalsClient struct {
	feedURL string
	apiKey  string
	client  *http.Client
}

// NewFeedVitalsClient builds a vitals reader. feedURL is the full
// feeds.json endpoint for the channel.
func NewFeedVitalsClient(feedURL, apiKey string) *FeedVitalsClient {
	return &FeedVitalsClient{
		feedURL: feedURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type feedResponse struct {
	Feeds []struct {
		CreatedAt time.Time `json:"created_at"`
		EntryID   int       `json:"entry_id"`
		Field1    string    `json:"field1"`
		Field2    string    `json:"field2"`
	} `json:"feeds"`
}

func (v *FeedVitalsClient) Latest(ctx context.Context) (VitalSigns, error) {
	u, err := url.Parse(v.feedURL)
	if err != nil {
		return VitalSigns{}, fmt.Errorf("parsing vitals URL: %w", err)
	}
	q := u.Query()
	q.Set("results", "10")
	if v.apiKey != "" {
		q.Set("api_key", v.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return VitalSigns{}, fmt.Errorf("building vitals request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return VitalSigns{}, fmt.Errorf("vitals request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VitalSigns{}, fmt.Errorf("vitals channel returned %d", resp.StatusCode)
	}

	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return VitalSigns{}, fmt.Errorf("decoding vitals feed: %w", err)
	}
	if len(fr.Feeds) == 0 {
		return VitalSigns{}, ErrNoVitals
	}

	latest := fr.Feeds[len(fr.Feeds)-1]
	hr, _ := strconv.ParseFloat(latest.Field1, 64)
	spo2, _ := strconv.ParseFloat(latest.Field2, 64)

	return VitalSigns{
		HeartRate:   hr,
		OxygenLevel: spo2,
		Status:      vitalsStatus(hr, spo2),
		SampledAt:   latest.CreatedAt,
		EntryID:     latest.EntryID,
	}, nil
}

func vitalsStatus(heartRate, oxygenLevel float64) string {
	switch {
	case heartRate < 50 || heartRate > 120 || oxygenLevel < 90:
		return "critical"
	case heartRate < 60 || heartRate > 100 || oxygenLevel < 95:
		return "warning"
	default:
		return "normal"
	}
}
