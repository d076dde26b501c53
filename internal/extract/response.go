package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuchen-w/fangnote/internal/models"
)

// response is the service's JSON reply shape.
type response struct {
	Listings []models.Listing `json:"listings"`
}

// parseListings decodes a model reply into listings. Models occasionally wrap
// JSON in markdown fences or add prose around it, so the object is located
// before decoding. An empty body is an error; an empty listings array is not
// (the task layer decides what zero listings mean).
func parseListings(raw string) ([]models.Listing, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, ErrNoResponse
	}

	var resp response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}
	if resp.Listings == nil {
		return []models.Listing{}, nil
	}
	return resp.Listings, nil
}

// extractJSONObject strips code fences and surrounding prose, returning the
// outermost {...} span, or "" when none exists.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
