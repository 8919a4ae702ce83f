package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBound(t *testing.T) {
	tests := []struct {
		input    string
		expected Bound
		wantErr  bool
	}{
		{"outbound", Outbound, false},
		{"O", Outbound, false},
		{"OUTBOUND", Outbound, false},
		{"inbound", Inbound, false},
		{"i", Inbound, false},
		{" I ", Inbound, false},
		{"sideways", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBound(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestBoundHelpers(t *testing.T) {
	assert.Equal(t, Inbound, Outbound.Opposite())
	assert.Equal(t, Outbound, Inbound.Opposite())
	assert.Equal(t, "O", Outbound.Code())
	assert.Equal(t, "I", Inbound.Code())
	assert.True(t, Outbound.Valid())
	assert.False(t, Bound("x").Valid())
}

func TestDecodeRouteCatalogEnvelope(t *testing.T) {
	body := []byte(`{
		"type": "RouteList",
		"version": "1.0",
		"generated_timestamp": "2024-06-15T08:00:00+08:00",
		"data": [
			{"route":"1","bound":"O","service_type":"1","orig_en":"CHUK YUEN ESTATE","orig_tc":"竹園邨","dest_en":"STAR FERRY","dest_tc":"尖沙咀碼頭"},
			{"route":"1A","bound":"I","service_type":1,"orig_en":"SAU MAU PING","orig_tc":"秀茂坪","dest_en":"STAR FERRY","dest_tc":"尖沙咀碼頭"}
		]
	}`)

	routes, err := DecodeEnvelope[[]Route](body)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, "1", routes[0].Route)
	assert.Equal(t, Outbound, routes[0].Bound)
	assert.Equal(t, FlexString("1"), routes[0].ServiceType)
	assert.Equal(t, "竹園邨", routes[0].OrigTC)

	assert.Equal(t, Inbound, routes[1].Bound)
	assert.Equal(t, FlexString("1"), routes[1].ServiceType, "numeric service_type decodes to the same string")
}

func TestDecodeEnvelopeRejectsMalformedBody(t *testing.T) {
	_, err := DecodeEnvelope[[]Route]([]byte(`{"data": [`))
	assert.Error(t, err)

	_, err = DecodeEnvelope[[]Route]([]byte(`{"data": [{"route":"1","bound":"X"}]}`))
	assert.Error(t, err, "unknown bound letters are rejected")
}

func TestDecodeStopInfo(t *testing.T) {
	body := []byte(`{"data": {"stop":"18492910339410B1","name_en":"STAR FERRY","name_tc":"尖沙咀碼頭","lat":"22.293989","long":114.168869}}`)

	stop, err := DecodeEnvelope[StopInfo](body)
	require.NoError(t, err)

	assert.Equal(t, "18492910339410B1", stop.Stop)
	assert.InDelta(t, 22.293989, float64(stop.Lat), 1e-9)
	assert.InDelta(t, 114.168869, float64(stop.Long), 1e-9)
	assert.False(t, stop.Empty())
	assert.True(t, StopInfo{}.Empty())
}

func TestDecodeRouteStops(t *testing.T) {
	body := []byte(`{"data": [
		{"route":"1A","bound":"I","service_type":"1","seq":"1","stop":"A"},
		{"route":"1A","bound":"I","service_type":"1","seq":"2","stop":"B"}
	]}`)

	stops, err := DecodeEnvelope[[]RouteStop](body)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, FlexInt(2), stops[1].Seq)

	resolved := ResolvedRouteStops{Route: "1A", Bound: Inbound, ServiceType: "1", Stops: stops}
	assert.Equal(t, []string{"A", "B"}, resolved.StopIDs())
	assert.Equal(t, 2, resolved.Len())
}

func TestDecodeETARecords(t *testing.T) {
	body := []byte(`{"data": [
		{"co":"KMB","route":"1A","dir":"O","service_type":1,"seq":3,"dest_en":"STAR FERRY","eta_seq":1,"eta":"2024-06-15T08:05:00+08:00","rmk_en":""},
		{"co":"KMB","route":"1A","dir":"O","service_type":1,"seq":3,"eta_seq":2,"eta":null,"rmk_en":"Final Bus"},
		{"co":"KMB","route":"1A","dir":"I","service_type":1,"seq":9,"eta_seq":1,"eta":"not a time"}
	]}`)

	records, err := DecodeEnvelope[[]ETARecord](body)
	require.NoError(t, err)
	require.Len(t, records, 3)

	require.NotNil(t, records[0].ETA)
	want := time.Date(2024, 6, 15, 0, 5, 0, 0, time.UTC)
	assert.True(t, want.Equal(*records[0].ETA))
	assert.Equal(t, FlexInt(1), records[0].EtaSeq)
	assert.True(t, records[0].HasTime())

	assert.Nil(t, records[1].ETA, "null eta means no prediction")
	assert.Equal(t, "Final Bus", records[1].RemarkEN)

	assert.Nil(t, records[2].ETA, "unparseable eta is treated as absent")
	assert.False(t, records[2].MatchesBound(Outbound))
	assert.True(t, records[2].MatchesBound(Inbound))
}

func TestETARecordWithoutDirectionMatchesAnyBound(t *testing.T) {
	r := ETARecord{}
	assert.True(t, r.MatchesBound(Outbound))
	assert.True(t, r.MatchesBound(Inbound))
}

func TestParseETATimeLayouts(t *testing.T) {
	assert.NotNil(t, ParseETATime("2024-06-15T08:05:00+08:00"))
	assert.NotNil(t, ParseETATime("2024-06-15T08:05:00"))
	assert.NotNil(t, ParseETATime("2024-06-15 08:05:00"))
	assert.Nil(t, ParseETATime(""))
	assert.Nil(t, ParseETATime("tomorrow"))
}

func TestETARecordMarshalsTimestamp(t *testing.T) {
	ts := time.Date(2024, 6, 15, 8, 5, 0, 0, time.FixedZone("HKT", 8*3600))
	data, err := json.Marshal(ETARecord{Stop: "A", EtaSeq: 1, ETA: &ts})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"eta":"2024-06-15T08:05:00+08:00"`)
}
