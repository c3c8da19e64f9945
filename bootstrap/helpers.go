package bootstrap

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// GenerateSecret returns a random URL-safe secret suitable for auth.jwt_secret.
func GenerateSecret(length int) (string, error) {
	if length < 32 {
		length = 32
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	secret := base64.RawURLEncoding.EncodeToString(buf)
	return secret[:length], nil
}

// ClassifyConnectionError turns a dial failure against backend (MongoDB or
// Redis) into an operator-facing message with remediation steps.
func ClassifyConnectionError(backend string, err error, addr string) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()
	service := strings.ToLower(backend)

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("Connection to %s at %s timed out.\n"+
			"  Possible causes:\n"+
			"  - %s is starting up (wait and retry)\n"+
			"  - Network latency or firewall blocking the connection\n"+
			"  Remediation:\n"+
			"  - Check if %s is running: docker ps | grep %s", backend, addr, backend, backend, service)
	}

	refused := containsIgnoreCase(errStr, "connection refused") || containsIgnoreCase(errStr, "actively refused")
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		refused = true
	}
	if refused {
		return fmt.Sprintf("Connection refused by %s at %s.\n"+
			"  This usually means %s is not running.\n"+
			"  Remediation:\n"+
			"  - Start it: docker compose up -d %s\n"+
			"  - Verify the address in config.yaml", backend, addr, backend, service)
	}

	if containsIgnoreCase(errStr, "server selection") {
		return fmt.Sprintf("No reachable %s server at %s.\n"+
			"  Remediation:\n"+
			"  - Check the replica set name and hosts in the URI\n"+
			"  - Verify network connectivity to every listed host", backend, addr)
	}

	if containsIgnoreCase(errStr, "no such host") || containsIgnoreCase(errStr, "lookup") {
		return fmt.Sprintf("Cannot resolve hostname in %s address %s.\n"+
			"  Remediation:\n"+
			"  - Verify the hostname is correct\n"+
			"  - Try using IP address (127.0.0.1) instead of hostname", backend, addr)
	}

	if containsIgnoreCase(errStr, "auth") || containsIgnoreCase(errStr, "password") || containsIgnoreCase(errStr, "denied") {
		return fmt.Sprintf("Authentication failed for %s at %s.\n"+
			"  Remediation:\n"+
			"  - Verify credentials in config.yaml\n"+
			"  - Check the AGORA_%s_* environment variables", backend, addr, strings.ToUpper(service))
	}

	return fmt.Sprintf("Failed to connect to %s at %s: %v\n"+
		"  Remediation:\n"+
		"  - Ensure %s is running and accessible\n"+
		"  - Verify network connectivity", backend, addr, err, backend)
}

// containsIgnoreCase checks if a string contains a substring (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
