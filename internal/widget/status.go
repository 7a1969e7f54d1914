package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusCategories lists the knowledge categories shown on the badge, in order.
var StatusCategories = []string{"en", "es", "ja"}

// Status is the connectivity badge state. Each poll replaces the previous one.
type Status struct {
	Connected bool
	Counts    map[string]int
}

// Count returns the number of entries for category, 0 when absent.
func (s Status) Count(category string) int {
	return s.Counts[category]
}

// Label renders the badge text, e.g. "Connected · EN 3 · ES 5".
func (s Status) Label() string {
	if !s.Connected {
		return "Not connected"
	}

	parts := []string{"Connected"}
	for _, category := range StatusCategories {
		n := s.Count(category)
		// Japanese is optional in most sheets; only show it once it has entries.
		if category == "ja" && n == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d", strings.ToUpper(category), n))
	}
	return strings.Join(parts, " · ")
}

type statusPayload struct {
	ENCount *int `json:"en_count"`
	ESCount *int `json:"es_count"`
	JACount *int `json:"ja_count"`
}

// PollStatus fetches the knowledge counts. Any failure yields a disconnected status;
// the caller decides whether and when to poll again.
func (c *Client) PollStatus(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+StatusPath, nil)
	if err != nil {
		return Status{}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Status{}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Status{}
	}

	var payload statusPayload
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return Status{}
	}

	return Status{
		Connected: true,
		Counts: map[string]int{
			"en": valueOrZero(payload.ENCount),
			"es": valueOrZero(payload.ESCount),
			"ja": valueOrZero(payload.JACount),
		},
	}
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
