package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RequestKind selects the controller a request is routed to.
type RequestKind string

// Request kinds
const (
	RequestProcessImages RequestKind = "PROCESS_IMAGES"
	RequestGenerateReel  RequestKind = "GENERATE_REEL"
)

// EventID identifies a race event.
type EventID int64

// String returns the decimal form used in storage keys and ledger rows.
func (e EventID) String() string {
	return strconv.FormatInt(int64(e), 10)
}

// ParseEventID accepts a number or a numeric string.
func ParseEventID(v interface{}) (EventID, error) {
	switch val := v.(type) {
	case nil:
		return 0, InvalidInputf("missing eventId")
	case EventID:
		return val, nil
	case int:
		return EventID(val), nil
	case int32:
		return EventID(val), nil
	case int64:
		return EventID(val), nil
	case float64:
		return eventIDFromFloat(val)
	case json.Number:
		return parseEventIDString(string(val))
	case FlexString:
		return parseEventIDString(string(val))
	case string:
		return parseEventIDString(val)
	default:
		return 0, InvalidInputf("eventId must be numeric (string or number), got %T", v)
	}
}

func parseEventIDString(s string) (EventID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, InvalidInputf("missing eventId")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return EventID(n), nil
	}
	// JSON numbers such as 1001.0 or 1e3 arrive here as text.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, InvalidInputf("eventId must be numeric (string or number), got %q", s)
	}
	return eventIDFromFloat(f)
}

// eventIDFromFloat accepts integral values that fit in an int64. float64(MaxInt64)
// rounds up to 2^63, so the upper bound is exclusive.
func eventIDFromFloat(val float64) (EventID, error) {
	if math.IsNaN(val) || math.IsInf(val, 0) || math.Trunc(val) != val ||
		val >= math.MaxInt64 || val < math.MinInt64 {
		return 0, InvalidInputf("eventId must be an integer, got %v", val)
	}
	return EventID(int64(val)), nil
}

// FlexString decodes from either a JSON string or a JSON number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

// Request is the inbound payload handed to the dispatcher.
type Request struct {
	RequestType       RequestKind `json:"requestType,omitempty"`
	Kind              RequestKind `json:"kind,omitempty"`
	EventID           FlexString  `json:"eventId"`
	FileID            string      `json:"fileId,omitempty"`
	Item              FlexString  `json:"item,omitempty"`
	ReelS3Key         string      `json:"reelS3Key,omitempty"`
	ReelConfiguration string      `json:"reelConfiguration,omitempty"`
}

// RequestKindOrAlias returns requestType, falling back to kind.
func (r *Request) RequestKindOrAlias() RequestKind {
	if r.RequestType != "" {
		return r.RequestType
	}
	return r.Kind
}

// Placement positions one overlay image on the video timeline.
type Placement struct {
	X         int     `json:"x" validate:"gte=0"`
	Y         int     `json:"y" validate:"gte=0"`
	Width     int     `json:"width" validate:"gte=0"`
	Height    int     `json:"height" validate:"gte=0"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
	EndTime   float64 `json:"end_time" validate:"gtfield=StartTime"`
}

// ReelConfiguration is the decoded form of reelConfiguration.
type ReelConfiguration struct {
	Overlays []Placement `json:"overlays" validate:"required,min=1,dive"`
}

// ReelRequest is one reel assembly instruction.
type ReelRequest struct {
	EventID       EventID
	BibID         string      `validate:"required"`
	BackgroundKey string      `validate:"required"`
	Overlays      []Placement `validate:"required,min=1,dive"`
}

// IngestResult is returned after a photo is stored.
type IngestResult struct {
	EventID string `json:"eventId"`
	FileID  string `json:"fileId"`
	Bucket  string `json:"s3Bucket"`
	Key     string `json:"s3Key"`
	OK      bool   `json:"ok"`
}

// ReelResult is returned after a reel is published.
type ReelResult struct {
	EventID string `json:"eventId"`
	BibID   string `json:"bibId"`
	Bucket  string `json:"s3Bucket"`
	ReelKey string `json:"processedReel"`
	OK      bool   `json:"ok"`
}

// ErrorResponse is the serialised form of a propagated error.
type ErrorResponse struct {
	OK        bool      `json:"ok"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error"`
}
