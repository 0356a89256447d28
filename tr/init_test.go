package tr

import (
	"reflect"
	"testing"
)

func TestParseOtelEnvHeaders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]string
	}{
		{"single", "x-api-key=abc", map[string]string{"x-api-key": "abc"}},
		{"multiple", "a=1,b=2", map[string]string{"a": "1", "b": "2"}},
		{"spaces", " a = 1 , b=2", map[string]string{"a": "1", "b": "2"}},
		{"value with equals", "auth=Basic dXNlcjpwYXNz==", map[string]string{"auth": "Basic dXNlcjpwYXNz=="}},
		{"junk pair skipped", "a=1,novalue,=x", map[string]string{"a": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseOtelEnvHeaders(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseOtelEnvHeaders(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsLoopbackAddress(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
		wantErr  bool
	}{
		{"127.0.0.1:4317", true, false},
		{"http://127.0.0.1:4317", true, false},
		{"10.0.0.5:4317", true, false},
		{"8.8.8.8:4317", false, false},
		{"https://8.8.8.8", false, false},
		{"not an endpoint", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := isLoopbackAddress(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("isLoopbackAddress(%q) error = %v, wantErr %v", tt.endpoint, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("isLoopbackAddress(%q) = %v, want %v", tt.endpoint, got, tt.want)
			}
		})
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct{ in, want string }{
		{"collector:4317", "collector:4317"},
		{"http://collector:4317", "collector:4317"},
		{"https://otlp.example.com:443", "otlp.example.com:443"},
	}
	for _, tt := range tests {
		if got := hostPort(tt.in); got != tt.want {
			t.Errorf("hostPort(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init("test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	shutdown()
}
