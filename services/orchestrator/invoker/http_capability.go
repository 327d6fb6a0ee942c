// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPCapability executes tools over HTTP.
//
// # Description
//
// Each tool maps to a base URL; execution POSTs the input as JSON to
// <base>/execute and decodes the JSON object reply. Status codes classify
// the failure: 429 and 5xx are transient, other 4xx are rejections.
//
// # Inputs
//
// Endpoints come from TOOL_<NAME>_URL environment variables, e.g.
// TOOL_NOTE_MAKER_URL=http://note-maker:8080.
type HTTPCapability struct {
	httpClient *http.Client
	endpoints  map[string]string
}

// NewHTTPCapability builds a capability for the given tool names, resolving
// each endpoint from the environment. Tools with no configured endpoint are
// omitted; execution against them fails permanently.
func NewHTTPCapability(toolNames []string) *HTTPCapability {
	endpoints := make(map[string]string, len(toolNames))
	for _, name := range toolNames {
		envKey := "TOOL_" + strings.ToUpper(name) + "_URL"
		if url := os.Getenv(envKey); url != "" {
			endpoints[name] = strings.TrimSuffix(url, "/")
		} else {
			slog.Warn("No endpoint configured for tool", "tool", name, "env_var", envKey)
		}
	}
	return &HTTPCapability{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoints:  endpoints,
	}
}

// Execute implements the Capability interface.
func (h *HTTPCapability) Execute(ctx context.Context, toolName string, input map[string]any) (map[string]any, error) {
	base, ok := h.endpoints[toolName]
	if !ok {
		return nil, fmt.Errorf("no endpoint configured for tool %q", toolName)
	}

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", toolName, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if isNetworkTransient(err) {
			return nil, MarkTransient(fmt.Errorf("%s call failed: %w", toolName, err))
		}
		return nil, fmt.Errorf("%s call failed: %w", toolName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, MarkTransient(fmt.Errorf("reading %s response: %w", toolName, err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var output map[string]any
		if err := json.Unmarshal(respBody, &output); err != nil {
			return nil, fmt.Errorf("%s returned malformed JSON: %w", toolName, err)
		}
		return output, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, MarkTransient(fmt.Errorf("%s returned status %d: %s", toolName, resp.StatusCode, truncateBody(respBody)))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s returned status %d: %s: %w", toolName, resp.StatusCode, truncateBody(respBody), ErrToolRejected)
	default:
		return nil, fmt.Errorf("%s returned unexpected status %d", toolName, resp.StatusCode)
	}
}

// isNetworkTransient classifies transport-level failures worth retrying.
func isNetworkTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func truncateBody(body []byte) string {
	const max = 256
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
