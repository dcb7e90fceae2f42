package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"Telemetry", topics.Telemetry("bike", 5), "armadillo/telemetry/bike/5"},
		{"AllTelemetry", topics.AllTelemetry(), "armadillo/telemetry/+/+"},
		{"KindTelemetry", topics.KindTelemetry("microgrid"), "armadillo/telemetry/microgrid/+"},
		{"SystemStatus", topics.SystemStatus(), "armadillo/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestParseTelemetryTopic(t *testing.T) {
	tests := []struct {
		topic    string
		wantKind string
		wantID   int64
		wantErr  bool
	}{
		{"armadillo/telemetry/bike/5", "bike", 5, false},
		{"armadillo/telemetry/oven/12", "oven", 12, false},
		{"armadillo/telemetry/anything/7", "anything", 7, false},
		{"armadillo/telemetry/bike", "", 0, true},
		{"armadillo/telemetry/bike/5/extra", "", 0, true},
		{"armadillo/telemetry//5", "", 0, true},
		{"armadillo/telemetry/bike/five", "", 0, true},
		{"armadillo/system/status", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			kind, id, err := ParseTelemetryTopic(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTopic) {
					t.Errorf("ParseTelemetryTopic() error = %v, want ErrInvalidTopic", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTelemetryTopic() error = %v", err)
			}
			if kind != tt.wantKind || id != tt.wantID {
				t.Errorf("ParseTelemetryTopic() = (%q, %d), want (%q, %d)", kind, id, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestTelemetryTopicRoundTrip(t *testing.T) {
	kind, id, err := ParseTelemetryTopic(Topics{}.Telemetry("oven", 42))
	if err != nil {
		t.Fatalf("ParseTelemetryTopic() error = %v", err)
	}
	if kind != "oven" || id != 42 {
		t.Errorf("round trip = (%q, %d), want (oven, 42)", kind, id)
	}
}
