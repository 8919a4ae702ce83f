package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes from either a JSON string or a JSON number. The upstream
// is inconsistent: service_type and seq are strings on some endpoints and
// numbers on others.
type FlexString string

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
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// FlexFloat decodes a coordinate sent either as a number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt decodes an integer sent either as a number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		*f = 0
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*f = FlexInt(v)
	return nil
}
