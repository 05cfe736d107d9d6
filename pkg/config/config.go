// Package config loads the option set from spec.md §6: candidate
// source URLs and the three timing/sizing knobs, either from a
// key=value file (the teacher's .env style) or from environment
// variables.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved option set, ready to build an
// rtsp.Config from.
type Config struct {
	URLList        []string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RecvBufferSize int
	UserAgent      string
}

func defaults() Config {
	return Config{
		ConnectTimeout: 3 * time.Second,
		RequestTimeout: 3 * time.Second,
		RecvBufferSize: 65535,
		UserAgent:      "rtspull/1.0",
	}
}

// Load reads configuration from a key=value file. Unknown keys are
// ignored; recognised keys are url_list (comma-separated),
// connect_timeout_ms, request_timeout_ms, recv_buffer_size, user_agent.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.set(key, value); err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: scan %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv reads the same option set from RTSPULL_-prefixed environment
// variables, for deployments that prefer env config over a mounted
// file.
func FromEnv() (*Config, error) {
	cfg := defaults()

	env := map[string]string{
		"url_list":           os.Getenv("RTSPULL_URL_LIST"),
		"connect_timeout_ms": os.Getenv("RTSPULL_CONNECT_TIMEOUT_MS"),
		"request_timeout_ms": os.Getenv("RTSPULL_REQUEST_TIMEOUT_MS"),
		"recv_buffer_size":   os.Getenv("RTSPULL_RECV_BUFFER_SIZE"),
		"user_agent":         os.Getenv("RTSPULL_USER_AGENT"),
	}

	for key, value := range env {
		if value == "" {
			continue
		}
		if err := cfg.set(key, value); err != nil {
			return nil, fmt.Errorf("config: %s: %w", key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "url_list":
		var urls []string
		for _, u := range strings.Split(value, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				urls = append(urls, u)
			}
		}
		c.URLList = urls
	case "connect_timeout_ms":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		c.ConnectTimeout = time.Duration(ms) * time.Millisecond
	case "request_timeout_ms":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		c.RequestTimeout = time.Duration(ms) * time.Millisecond
	case "recv_buffer_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		c.RecvBufferSize = n
	case "user_agent":
		c.UserAgent = value
	}
	return nil
}

// Validate checks the required fields are present, mirroring the
// teacher's Config.Validate.
func (c *Config) Validate() error {
	if len(c.URLList) == 0 {
		return fmt.Errorf("config: missing url_list")
	}
	for _, u := range c.URLList {
		if !strings.HasPrefix(u, "rtsp://") && !strings.HasPrefix(u, "rtsps://") {
			return fmt.Errorf("config: url_list entry %q missing rtsp(s):// scheme", u)
		}
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("config: connect_timeout_ms must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request_timeout_ms must be positive")
	}
	if c.RecvBufferSize <= 0 {
		return fmt.Errorf("config: recv_buffer_size must be positive")
	}
	return nil
}
