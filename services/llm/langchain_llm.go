// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainClient adapts a langchaingo model to the LLMClient interface.
//
// Used for local Ollama models when the deployment prefers langchaingo's
// prompt plumbing over the raw HTTP client.
type LangChainClient struct {
	model llms.Model
	name  string
}

// NewLangChainOllamaClient builds a langchaingo-backed Ollama client from
// OLLAMA_BASE_URL / OLLAMA_MODEL.
func NewLangChainOllamaClient() (*LangChainClient, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	modelName := os.Getenv("OLLAMA_MODEL")
	if baseURL == "" {
		return nil, fmt.Errorf("OLLAMA_BASE_URL environment variable not set")
	}
	if modelName == "" {
		slog.Warn("OLLAMA_MODEL not set, defaulting to llama3")
		modelName = "llama3"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	model, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create langchaingo ollama model: %w", err)
	}

	slog.Info("Initializing langchaingo Ollama client", "base_url", baseURL, "model", modelName)
	return &LangChainClient{model: model, name: modelName}, nil
}

// Generate implements the LLMClient interface
func (c *LangChainClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	slog.Debug("Generating text via langchaingo", "model", c.name)

	opts := []llms.CallOption{}
	if params.Temperature != nil {
		opts = append(opts, llms.WithTemperature(float64(*params.Temperature)))
	} else {
		opts = append(opts, llms.WithTemperature(0.1))
	}
	if params.TopP != nil {
		opts = append(opts, llms.WithTopP(float64(*params.TopP)))
	}
	if params.TopK != nil {
		opts = append(opts, llms.WithTopK(*params.TopK))
	}
	if params.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*params.MaxTokens))
	}
	if len(params.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(params.Stop))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	if err != nil {
		slog.Error("langchaingo generation failed", "error", err)
		return "", fmt.Errorf("langchaingo generation failed: %w", err)
	}
	return out, nil
}
