// Package normalizer parses raw platform webhook payloads into canonical
// NormalizedMessage values. Parsing is pure and side-effect-free; all
// storage and policy decisions happen downstream.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chatlead/convo-pipeline/internal/apperrors"
	"github.com/chatlead/convo-pipeline/internal/model"
	"github.com/chatlead/convo-pipeline/pkg/utils"
)

// Parse dispatches the raw payload to the channel-specific parser.
// Returns ErrMalformedPayload for unknown channels or structurally
// invalid payloads.
func Parse(channel string, raw []byte) ([]model.NormalizedMessage, error) {
	switch channel {
	case model.ChannelWhatsApp:
		return ParseWhatsApp(raw)
	case model.ChannelInstagram:
		return ParseInstagram(raw)
	default:
		return nil, fmt.Errorf("%w: unsupported channel %q", apperrors.ErrMalformedPayload, channel)
	}
}

// normalizeTimestamp converts the loose timestamp representations the
// platforms send into UTC. Numeric epochs are disambiguated between
// seconds and milliseconds by magnitude; numeric strings by digit count.
// Unparseable or absent values fall back to the current time, a documented
// imprecision rather than an error.
func normalizeTimestamp(v interface{}) time.Time {
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return utils.Now()
		}
		if t > 1e12 {
			return utils.UnixMillisToTime(int64(t))
		}
		return utils.UnixToTime(int64(t))
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return utils.Now()
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			if len(trimmed) > 10 {
				return utils.UnixMillisToTime(n)
			}
			return utils.UnixToTime(n)
		}
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return parsed.UTC()
		}
		if parsed, err := time.Parse("2006-01-02 15:04:05", trimmed); err == nil {
			return parsed.UTC()
		}
		return utils.Now()
	default:
		return utils.Now()
	}
}

// stringField returns m[key] when it is a non-empty string.
func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// mapField returns m[key] when it is an object.
func mapField(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]interface{})
	return sub
}

// sliceField returns m[key] when it is an array.
func sliceField(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	arr, _ := m[key].([]interface{})
	return arr
}

// firstNonEmpty returns the first non-empty candidate, or fallback.
func firstNonEmpty(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return fallback
}
