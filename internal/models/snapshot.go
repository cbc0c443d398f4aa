package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptySnapshot indicates the station row carries no current-session value.
var ErrEmptySnapshot = errors.New("models: empty session snapshot")

// ParseSessionSnapshot decodes the current-session snapshot embedded on a
// station row. The snapshot arrives either as encoded JSON text or as an
// already-decoded object, and historical rows mix camelCase and snake_case
// keys, so every field is read with a fallback. A malformed snapshot is an
// error for the caller to log; it must never abort loading the station list.
func ParseSessionSnapshot(raw []byte) (*Session, error) {
	if len(raw) == 0 {
		return nil, ErrEmptySnapshot
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Double-encoded rows store the object as a JSON string.
		var text string
		if innerErr := json.Unmarshal(raw, &text); innerErr != nil {
			return nil, fmt.Errorf("models: decode session snapshot: %w", err)
		}
		if text == "" || text == "null" {
			return nil, ErrEmptySnapshot
		}
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("models: decode session snapshot text: %w", err)
		}
	}
	if fields == nil {
		return nil, ErrEmptySnapshot
	}

	session := &Session{
		ID:         snapshotString(fields, "id"),
		StationID:  snapshotString(fields, "stationId", "station_id"),
		CustomerID: snapshotString(fields, "customerId", "customer_id"),
		CouponCode: snapshotString(fields, "couponCode", "coupon_code"),
	}
	if session.ID == "" {
		return nil, errors.New("models: session snapshot missing id")
	}

	if t, ok := snapshotTime(fields, "startTime", "start_time"); ok {
		session.StartTime = t
	}
	if t, ok := snapshotTime(fields, "endTime", "end_time"); ok {
		session.EndTime = &t
	}
	if d, ok := snapshotDecimal(fields, "hourlyRate", "hourly_rate"); ok {
		session.HourlyRate = d
	}
	if d, ok := snapshotDecimal(fields, "originalRate", "original_rate"); ok {
		session.OriginalRate = d
	} else {
		session.OriginalRate = session.HourlyRate
	}
	if d, ok := snapshotDecimal(fields, "discountAmount", "discount_amount"); ok {
		session.DiscountAmount = &d
	}
	if n, ok := snapshotInt(fields, "duration"); ok {
		session.Duration = n
	}

	return session, nil
}

func snapshotString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err == nil {
			return value
		}
	}
	return ""
}

func snapshotTime(fields map[string]json.RawMessage, keys ...string) (time.Time, bool) {
	value := snapshotString(fields, keys...)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func snapshotDecimal(fields map[string]json.RawMessage, keys ...string) (decimal.Decimal, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var number float64
		if err := json.Unmarshal(raw, &number); err == nil {
			return decimal.NewFromFloat(number), true
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && text != "" {
			if d, err := decimal.NewFromString(text); err == nil {
				return d, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func snapshotInt(fields map[string]json.RawMessage, keys ...string) (int, bool) {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var number int
		if err := json.Unmarshal(raw, &number); err == nil {
			return number, true
		}
	}
	return 0, false
}
