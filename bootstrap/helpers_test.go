package bootstrap

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"testing"
)

func TestGenerateSecret(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		minLength int
	}{
		{"default length", 32, 32},
		{"48 characters", 48, 48},
		{"short length enforces minimum", 8, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := GenerateSecret(tt.length)
			if err != nil {
				t.Fatalf("GenerateSecret() error = %v", err)
			}
			if len(secret) < tt.minLength {
				t.Errorf("GenerateSecret(%d) length = %d, want >= %d", tt.length, len(secret), tt.minLength)
			}
		})
	}

	t.Run("generates unique secrets", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			s, _ := GenerateSecret(32)
			if seen[s] {
				t.Error("Generated duplicate secret")
			}
			seen[s] = true
		}
	})
}

func TestContainsIgnoreCase(t *testing.T) {
	tests := []struct {
		s        string
		substr   string
		expected bool
	}{
		{"Hello World", "hello", true},
		{"Hello World", "WORLD", true},
		{"Hello World", "xyz", false},
		{"", "", true},
		{"", "abc", false},
		{"connection refused", "Connection Refused", true},
	}

	for _, tt := range tests {
		t.Run(tt.s+"_"+tt.substr, func(t *testing.T) {
			if got := containsIgnoreCase(tt.s, tt.substr); got != tt.expected {
				t.Errorf("containsIgnoreCase(%q, %q) = %v, want %v", tt.s, tt.substr, got, tt.expected)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		err      error
		addr     string
		contains string
	}{
		{"nil error returns empty string", "MongoDB", nil, "mongodb://localhost:27017", ""},
		{"timeout", "MongoDB", timeoutErr{}, "mongodb://db:27017", "timed out"},
		{
			"dial refused",
			"Redis",
			&net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			"localhost:6379",
			"docker compose up -d redis",
		},
		{"refused in message", "MongoDB", errors.New("dial tcp: connection refused"), "mongodb://localhost", "Connection refused by MongoDB"},
		{"server selection", "MongoDB", errors.New("server selection error: context deadline exceeded"), "mongodb://rs", "No reachable MongoDB server"},
		{"dns", "Redis", errors.New("dial tcp: lookup cache.internal: no such host"), "cache.internal:6379", "Cannot resolve hostname"},
		{"auth", "Redis", errors.New("WRONGPASS invalid username-password pair"), "localhost:6379", "AGORA_REDIS_*"},
		{"fallback", "Redis", errors.New("something odd"), "localhost:6379", "something odd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyConnectionError(tt.backend, tt.err, tt.addr)
			if tt.contains == "" && result != "" {
				t.Errorf("ClassifyConnectionError() = %q, want empty string", result)
			}
			if tt.contains != "" && !strings.Contains(result, tt.contains) {
				t.Errorf("ClassifyConnectionError() = %q, want to contain %q", result, tt.contains)
			}
		})
	}
}
