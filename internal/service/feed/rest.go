package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"OpsPulse/internal/domain/models"
	pkghttp "OpsPulse/pkg/http"
)

// RestClient pulls recent points over the feed's REST API. It backs the
// catch-up after a WebSocket reconnect so gaps in the stream get filled.
type RestClient struct {
	http    *pkghttp.Client
	baseURL string
	token   string
}

// NewRestClient creates a REST catch-up client.
func NewRestClient(client *pkghttp.Client, baseURL, token string) *RestClient {
	return &RestClient{http: client, baseURL: baseURL, token: token}
}

// feedPoint is one point in the REST payload. Timestamps arrive in
// milliseconds, same as the WebSocket frames.
type feedPoint struct {
	M string  `json:"metric"`
	V float64 `json:"value"`
	T int64   `json:"ts"`
	S string  `json:"source"`
}

type restPointsResponse struct {
	Data []feedPoint `json:"data"`
}

// RecentPoints fetches points for one metric since the given time,
// oldest first.
func (c *RestClient) RecentPoints(ctx context.Context, metricID string, since time.Time) ([]*models.Observation, error) {
	var resp restPointsResponse
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    fmt.Sprintf("%s/v1/points/%s", c.baseURL, metricID),
		QueryParams: map[string][]string{
			"from":  {strconv.FormatInt(since.UnixMilli(), 10)},
			"token": {c.token},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("feed recent points: %w", err)
	}

	out := make([]*models.Observation, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, &models.Observation{
			MetricID:  d.M,
			Value:     d.V,
			Timestamp: d.T / 1000,
			Source:    d.S,
		})
	}
	return out, nil
}
