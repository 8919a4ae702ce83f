package models

import "encoding/json"

// Envelope is the wrapper every upstream response uses: {"data": <payload>}.
type Envelope[T any] struct {
	Type               string `json:"type"`
	Version            string `json:"version"`
	GeneratedTimestamp string `json:"generated_timestamp"`
	Data               T      `json:"data"`
}

// DecodeEnvelope unmarshals body and returns its payload.
func DecodeEnvelope[T any](body []byte) (T, error) {
	var env Envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		var zero T
		return zero, err
	}
	return env.Data, nil
}
