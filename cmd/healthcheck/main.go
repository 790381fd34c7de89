// Package main is a minimal HTTP health check binary for the agent's local
// API. It exits 0 when the /health endpoint returns HTTP 200, and 1
// otherwise. Compile with CGO_ENABLED=0 for a fully static binary.
package main

import (
	"net"
	"net/http"
	"os"
	"time"
)

func main() {
	host := envOr("TRANSLATOR_HOST", "127.0.0.1")
	port := envOr("TRANSLATOR_PORT", "8765")

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + net.JoinHostPort(host, port) + "/health")
	if err != nil {
		os.Exit(1)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
