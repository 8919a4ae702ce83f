package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ETARecord is one arrival prediction for a stop. EtaSeq is the rank of the
// arrival among the upcoming ones, not a number of minutes. ETA is nil when
// the upstream has no timestamp for this slot.
type ETARecord struct {
	Stop          string     `json:"stop"`
	Route         string     `json:"route"`
	Dir           string     `json:"dir"`
	ServiceType   FlexString `json:"service_type"`
	Seq           FlexInt    `json:"seq"`
	EtaSeq        FlexInt    `json:"eta_seq"`
	ETA           *time.Time `json:"eta"`
	DestEN        string     `json:"dest_en"`
	DestTC        string     `json:"dest_tc"`
	RemarkEN      string     `json:"rmk_en"`
	RemarkTC      string     `json:"rmk_tc"`
	DataTimestamp string     `json:"data_timestamp"`
}

// etaTimeLayouts are tried in order; the feed normally sends RFC 3339 with a
// +08:00 offset.
var etaTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseETATime parses an upstream timestamp. Unparseable or empty input
// yields nil so the record counts as having no prediction.
func ParseETATime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range etaTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (e *ETARecord) UnmarshalJSON(data []byte) error {
	type alias ETARecord
	var wire struct {
		alias
		ETA *string `json:"eta"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = ETARecord(wire.alias)
	e.ETA = nil
	if wire.ETA != nil {
		e.ETA = ParseETATime(*wire.ETA)
	}
	return nil
}

// HasTime reports whether the record carries a usable prediction.
func (e ETARecord) HasTime() bool {
	return e.ETA != nil
}

// MatchesBound reports whether the record belongs to direction b. Records
// without a direction are kept.
func (e ETARecord) MatchesBound(b Bound) bool {
	if e.Dir == "" {
		return true
	}
	parsed, err := ParseBound(e.Dir)
	if err != nil {
		return true
	}
	return parsed == b
}
