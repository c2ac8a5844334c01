package instrumentation

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_SERVICE_INSTANCE_ID", "")
	t.Setenv("INSTRUMENTATION_ENABLED", "")
	t.Setenv("PROMETHEUS_ENDPOINT", "")

	config := DefaultConfig()

	if config.ServiceName != "zoomfetch" {
		t.Errorf("expected default service name 'zoomfetch', got %q", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected instrumentation to be enabled by default")
	}
	if config.PrometheusEndpoint != "/metrics" {
		t.Errorf("expected default prometheus endpoint '/metrics', got %q", config.PrometheusEndpoint)
	}
}

func TestDefaultConfigEnvOverrides(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "broker-test")
	t.Setenv("OTEL_SERVICE_INSTANCE_ID", "instance-1")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("PROMETHEUS_ENDPOINT", "/internal/metrics")

	config := DefaultConfig()

	if config.ServiceName != "broker-test" {
		t.Errorf("expected service name 'broker-test', got %q", config.ServiceName)
	}
	if config.ServiceInstanceID != "instance-1" {
		t.Errorf("expected instance id 'instance-1', got %q", config.ServiceInstanceID)
	}
	if config.Enabled {
		t.Error("expected instrumentation to be disabled")
	}
	if config.PrometheusEndpoint != "/internal/metrics" {
		t.Errorf("expected prometheus endpoint '/internal/metrics', got %q", config.PrometheusEndpoint)
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		expected     bool
	}{
		{"unset uses default true", "", true, true},
		{"unset uses default false", "", false, false},
		{"explicit true", "true", false, true},
		{"explicit false", "false", true, false},
		{"numeric one", "1", false, true},
		{"garbage uses default", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INSTRUMENTATION_TEST_BOOL", tt.value)
			got := getEnvBoolOrDefault("INSTRUMENTATION_TEST_BOOL", tt.defaultValue)
			if got != tt.expected {
				t.Errorf("getEnvBoolOrDefault(%q, %v) = %v, expected %v", tt.value, tt.defaultValue, got, tt.expected)
			}
		})
	}
}
