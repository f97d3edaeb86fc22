package screening

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Classifier sends a captured JPEG to a hosted detection model and
// returns the top prediction.
type Classifier interface {
	Classify(ctx context.Context, jpegData []byte) (Classification, error)
}

// HTTPClassifier talks to a Roboflow-style detect endpoint: the image is
// POSTed as a base64 form body to {base}/{model}?api_key=<key>.
type HTTPClassifier struct {
	base   string
	model  string
	apiKey string
	client *http.Client
}

// NewHTTPClassifier builds a classifier client. base is the service root
// (e.g. https://detect.roboflow.com), model the project/version path.
func NewHTTPClassifier(base, model, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		base:   strings.TrimRight(base, "/"),
		model:  strings.Trim(model, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type detectResponse struct {
	Predictions []struct {
		Class      string  `json:"class"`
		Confidence float64 `json:"confidence"`
	} `json:"predictions"`
	Time float64 `json:"time"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, jpegData []byte) (Classification, error) {
	endpoint := fmt.Sprintf("%s/%s?api_key=%s", c.base, c.model, url.QueryEscape(c.apiKey))
	body := base64.StdEncoding.EncodeToString(jpegData)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return Classification{}, fmt.Errorf("building classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Classification{}, fmt.Errorf("classifier returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var dr detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return Classification{}, fmt.Errorf("decoding classifier response: %w", err)
	}

	out := Classification{Class: "unknown", InferenceTime: dr.Time}
	if len(dr.Predictions) > 0 {
		out.Class = dr.Predictions[0].Class
		out.Confidence = dr.Predictions[0].Confidence
	}
	return out, nil
}
