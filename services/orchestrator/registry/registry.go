// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry provides the educational tool catalogue.
//
// This package loads tool specifications (required/optional parameters,
// routing keywords, defaults) from an embedded YAML file once at startup
// and serves them immutably for the rest of the process lifetime. It also
// implements schema validation of candidate tool inputs.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use after Load returns.
package registry

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Constants (SEC2: File size limits)
// =============================================================================

const (
	// MaxYAMLFileSize is the maximum allowed YAML catalogue size (1MB).
	// SEC2: Prevents memory issues from large files.
	MaxYAMLFileSize = 1024 * 1024

	// MaxKeywordsPerTool is the maximum keywords allowed per tool.
	MaxKeywordsPerTool = 50

	// MaxToolsInCatalog is the maximum tools allowed in the catalogue.
	MaxToolsInCatalog = 100

	// MaxParamsPerTool is the maximum parameters (required + optional) per tool.
	MaxParamsPerTool = 50
)

// =============================================================================
// Embedded Default Catalogue (P4: Embedded YAML for deployment simplicity)
// =============================================================================

//go:embed tool_catalog.yaml
var defaultToolCatalogYAML []byte

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	toolRoutingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_tool_routing_decisions_total",
		Help: "Total tool routing decisions by tool and source",
	}, []string{"tool", "source"})

	toolRoutingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutor_tool_routing_latency_seconds",
		Help:    "Tool routing decision latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1},
	})

	keywordMatchCount = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutor_keyword_match_count",
		Help:    "Number of keywords matched per routing decision",
		Buckets: []float64{0, 1, 2, 3, 5, 10},
	}, []string{"tool"})

	catalogLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_tool_catalog_load_errors_total",
		Help: "Total tool catalogue load errors",
	})

	catalogLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tutor_tool_catalog_load_duration_seconds",
		Help:    "Duration of tool catalogue loading",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5},
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var catalogTracer = otel.Tracer("tutor.orchestrator.registry")

// =============================================================================
// Types (I1: Concrete types for YAML deserialization)
// =============================================================================

// ParamType enumerates the parameter value types the catalogue supports.
type ParamType string

const (
	ParamTypeString ParamType = "string"
	ParamTypeInt    ParamType = "int"
	ParamTypeBool   ParamType = "bool"
)

// toolCatalogYAML is the root structure for YAML deserialization.
type toolCatalogYAML struct {
	Tools []toolEntryYAML `yaml:"tools"`
}

// toolEntryYAML represents a single tool entry in the YAML file.
type toolEntryYAML struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Keywords    []string        `yaml:"keywords"`
	Required    []paramSpecYAML `yaml:"required"`
	Optional    []paramSpecYAML `yaml:"optional,omitempty"`
}

// paramSpecYAML represents a parameter specification in YAML.
type paramSpecYAML struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Enum    []string `yaml:"enum,omitempty"`
	Min     *int     `yaml:"min,omitempty"`
	Max     *int     `yaml:"max,omitempty"`
	MaxLen  int      `yaml:"max_len,omitempty"`
	Default any      `yaml:"default,omitempty"`
}

// ParamSpec describes one parameter of a tool's input schema.
type ParamSpec struct {
	// Name is the parameter name as it appears in tool input.
	Name string

	// Type is the expected value type.
	Type ParamType

	// Enum restricts string values to this set when non-empty.
	Enum []string

	// Min and Max bound int values inclusively when set.
	Min *int
	Max *int

	// MaxLen bounds string byte length when > 0.
	MaxLen int

	// Default is filled in for unset optional parameters during adaptation.
	// Nil means the parameter has no default.
	Default any
}

// ToolSpec is the immutable specification of one educational tool.
type ToolSpec struct {
	// Name is the tool name (snake_case).
	Name string

	// Description is shown in the tools listing and model prompts.
	Description string

	// Keywords are utterance terms that route to this tool.
	Keywords []string

	// Required parameters must be present and valid before invocation.
	Required []ParamSpec

	// Optional parameters are validated when present; unset ones may be
	// filled from Default during adaptation.
	Optional []ParamSpec
}

// Param returns the spec for a parameter name, searching required then
// optional, and whether it exists.
func (t *ToolSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range t.Required {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range t.Optional {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// ToolRegistry is the loaded, immutable tool catalogue.
//
// Thread Safety: Safe for concurrent use after initialization.
type ToolRegistry struct {
	// entries maps tool name to its spec.
	entries map[string]*ToolSpec

	// keywordIndex maps lowercase keywords to tool names for O(1) lookup.
	keywordIndex map[string][]string

	// priority orders tools for deterministic tie-breaking, catalogue order.
	priority []string

	// loadedAt is when the catalogue was loaded (Unix milliseconds UTC).
	loadedAt int64
}

// =============================================================================
// Loading Logic
// =============================================================================

// Load loads the tool catalogue from YAML.
//
// # Description
//
//	Tries an external file first (TOOL_CATALOG_PATH or ./config/tool_catalog.yaml)
//	so deployments can customize the catalogue; falls back to the embedded
//	default otherwise. The result is immutable.
//
// # Inputs
//
//	ctx - Context for tracing. Must not be nil.
//
// # Outputs
//
//	*ToolRegistry - The loaded catalogue. Never nil on success.
//	error - Non-nil if loading or validation failed.
//
// Thread Safety: Safe for concurrent use; the returned registry is read-only.
func Load(ctx context.Context) (*ToolRegistry, error) {
	if ctx == nil {
		return nil, fmt.Errorf("Load: ctx must not be nil")
	}

	ctx, span := catalogTracer.Start(ctx, "registry.Load")
	defer span.End()

	startTime := time.Now()
	defer func() {
		catalogLoadDuration.Observe(time.Since(startTime).Seconds())
	}()

	// Try to load from external file first (allows customization)
	externalPath := getExternalCatalogPath()
	var yamlData []byte
	var source string

	if externalPath != "" {
		data, err := loadExternalYAML(ctx, externalPath)
		if err == nil {
			yamlData = data
			source = "external"
			slog.Info("Loaded tool catalogue from external file",
				slog.String("path", externalPath))
		} else {
			// Log warning but continue with embedded default
			slog.Warn("External tool catalogue not available, using embedded default",
				slog.String("path", externalPath),
				slog.String("error", err.Error()))
		}
	}

	if yamlData == nil {
		yamlData = defaultToolCatalogYAML
		source = "embedded"
		slog.Debug("Using embedded tool catalogue")
	}

	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("yaml_size", len(yamlData)),
	)

	registry, err := parseToolCatalogYAML(yamlData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		catalogLoadErrors.Inc()
		return nil, fmt.Errorf("parsing tool catalogue YAML: %w", err)
	}

	span.SetAttributes(
		attribute.Int("tool_count", len(registry.entries)),
		attribute.Int("keyword_count", len(registry.keywordIndex)),
	)

	slog.Info("Tool catalogue loaded",
		slog.Int("tool_count", len(registry.entries)),
		slog.Int("keyword_count", len(registry.keywordIndex)),
		slog.String("source", source))

	return registry, nil
}

// getExternalCatalogPath returns the path to an external catalogue file.
// Returns empty string if no external path is configured.
func getExternalCatalogPath() string {
	if path := os.Getenv("TOOL_CATALOG_PATH"); path != "" {
		return path
	}

	locations := []string{
		"./config/tool_catalog.yaml",
		"./tool_catalog.yaml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			absPath, _ := filepath.Abs(loc)
			return absPath
		}
	}

	return ""
}

// loadExternalYAML loads YAML from an external file with security checks.
//
// SEC1: Path validation
// SEC2: File size limits
func loadExternalYAML(ctx context.Context, path string) ([]byte, error) {
	_, span := catalogTracer.Start(ctx, "registry.LoadExternal",
		trace.WithAttributes(attribute.String("path", path)),
	)
	defer span.End()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	if strings.Contains(absPath, "..") {
		return nil, fmt.Errorf("loadExternalYAML: path traversal not allowed: %s", absPath)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("YAML file too large: %d bytes (max %d)", info.Size(), MaxYAMLFileSize)
	}

	span.SetAttributes(attribute.Int64("file_size", info.Size()))

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return data, nil
}

// parseToolCatalogYAML parses YAML data into a registry.
//
// Validates every entry: non-empty names, known parameter types, and the
// invariant that required and optional parameter names are disjoint.
func parseToolCatalogYAML(data []byte) (*ToolRegistry, error) {
	var yamlCat toolCatalogYAML
	if err := yaml.Unmarshal(data, &yamlCat); err != nil {
		return nil, fmt.Errorf("unmarshaling YAML: %w", err)
	}

	if len(yamlCat.Tools) > MaxToolsInCatalog {
		return nil, fmt.Errorf("too many tools: %d (max %d)", len(yamlCat.Tools), MaxToolsInCatalog)
	}
	if len(yamlCat.Tools) == 0 {
		return nil, fmt.Errorf("tool catalogue has no tools")
	}

	registry := &ToolRegistry{
		entries:      make(map[string]*ToolSpec, len(yamlCat.Tools)),
		keywordIndex: make(map[string][]string),
		loadedAt:     time.Now().UnixMilli(),
	}

	for i, tool := range yamlCat.Tools {
		if tool.Name == "" {
			return nil, fmt.Errorf("parseToolCatalogYAML: tool at index %d has empty name", i)
		}
		if _, dup := registry.entries[tool.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", tool.Name)
		}
		if len(tool.Keywords) == 0 {
			slog.Warn("Tool has no routing keywords", slog.String("tool", tool.Name))
		}
		if len(tool.Keywords) > MaxKeywordsPerTool {
			return nil, fmt.Errorf("tool %s has too many keywords: %d (max %d)",
				tool.Name, len(tool.Keywords), MaxKeywordsPerTool)
		}
		if len(tool.Required)+len(tool.Optional) > MaxParamsPerTool {
			return nil, fmt.Errorf("tool %s has too many parameters (max %d)",
				tool.Name, MaxParamsPerTool)
		}

		required, err := convertParams(tool.Name, tool.Required)
		if err != nil {
			return nil, err
		}
		optional, err := convertParams(tool.Name, tool.Optional)
		if err != nil {
			return nil, err
		}

		// Required and optional parameter names must be disjoint.
		seen := make(map[string]bool, len(required))
		for _, p := range required {
			if seen[p.Name] {
				return nil, fmt.Errorf("tool %s declares parameter %q twice", tool.Name, p.Name)
			}
			seen[p.Name] = true
		}
		for _, p := range optional {
			if seen[p.Name] {
				return nil, fmt.Errorf("tool %s declares parameter %q as both required and optional",
					tool.Name, p.Name)
			}
			seen[p.Name] = true
		}

		spec := &ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Keywords:    tool.Keywords,
			Required:    required,
			Optional:    optional,
		}
		registry.entries[tool.Name] = spec
		registry.priority = append(registry.priority, tool.Name)

		for _, keyword := range tool.Keywords {
			lowerKeyword := strings.ToLower(keyword)
			registry.keywordIndex[lowerKeyword] = append(registry.keywordIndex[lowerKeyword], tool.Name)
		}
	}

	return registry, nil
}

// convertParams converts YAML parameter specs to ParamSpec, validating types.
func convertParams(toolName string, params []paramSpecYAML) ([]ParamSpec, error) {
	var out []ParamSpec
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("tool %s has a parameter with an empty name", toolName)
		}
		pt := ParamType(p.Type)
		switch pt {
		case ParamTypeString, ParamTypeInt, ParamTypeBool:
		default:
			return nil, fmt.Errorf("tool %s parameter %s has unknown type %q", toolName, p.Name, p.Type)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return nil, fmt.Errorf("tool %s parameter %s has min > max", toolName, p.Name)
		}
		out = append(out, ParamSpec{
			Name:    p.Name,
			Type:    pt,
			Enum:    p.Enum,
			Min:     p.Min,
			Max:     p.Max,
			MaxLen:  p.MaxLen,
			Default: p.Default,
		})
	}
	return out, nil
}

// =============================================================================
// Registry Methods
// =============================================================================

// Get returns the spec for a tool.
//
// Outputs:
//
//	*ToolSpec - The spec, or nil if not found.
//	bool - True if found.
func (r *ToolRegistry) Get(toolName string) (*ToolSpec, bool) {
	spec, ok := r.entries[toolName]
	return spec, ok
}

// Specs returns all tool specs in deterministic (name) order.
func (r *ToolRegistry) Specs() []*ToolSpec {
	if r == nil {
		return nil
	}
	specs := make([]*ToolSpec, 0, len(r.entries))
	for _, s := range r.entries {
		specs = append(specs, s)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Priority returns the catalogue-order tool names used for tie-breaking.
func (r *ToolRegistry) Priority() []string {
	if r == nil {
		return nil
	}
	return r.priority
}

// ToolMatch represents a tool that matched keywords in an utterance.
type ToolMatch struct {
	ToolName        string
	MatchCount      int
	MatchedKeywords []string
	Spec            *ToolSpec
}

// FindToolsByKeyword finds tools matching keywords in an utterance.
//
// # Description
//
//	Performs O(1) keyword lookup using the pre-built keyword index, plus a
//	substring scan for multi-word keywords ("what is"). Returns tools sorted
//	by match count descending; ties resolve by catalogue priority order, so
//	results are deterministic for identical input.
//
// # Inputs
//
//	utterance - The student message to match against.
//
// # Outputs
//
//	[]ToolMatch - Tools matching the utterance, best first.
func (r *ToolRegistry) FindToolsByKeyword(utterance string) []ToolMatch {
	if r == nil || r.entries == nil {
		return []ToolMatch{}
	}
	// Limit scan length to prevent DoS (10KB max)
	const maxQueryLen = 10240
	if len(utterance) > maxQueryLen {
		slog.Warn("FindToolsByKeyword: utterance too long, truncating",
			slog.Int("original_len", len(utterance)),
			slog.Int("max_len", maxQueryLen))
		utterance = utterance[:maxQueryLen]
	}
	if len(utterance) == 0 {
		return []ToolMatch{}
	}

	startTime := time.Now()
	defer func() {
		toolRoutingLatency.Observe(time.Since(startTime).Seconds())
	}()

	lower := strings.ToLower(utterance)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})

	matchCounts := make(map[string]int)
	matchedKeywords := make(map[string][]string)

	for _, word := range words {
		if toolNames, ok := r.keywordIndex[word]; ok {
			for _, toolName := range toolNames {
				matchCounts[toolName]++
				matchedKeywords[toolName] = append(matchedKeywords[toolName], word)
			}
		}
	}

	// Multi-word keywords need a substring scan.
	for keyword, toolNames := range r.keywordIndex {
		if strings.Contains(keyword, " ") && strings.Contains(lower, keyword) {
			for _, toolName := range toolNames {
				matchCounts[toolName]++
				matchedKeywords[toolName] = append(matchedKeywords[toolName], keyword)
			}
		}
	}

	var matches []ToolMatch
	for toolName, count := range matchCounts {
		spec := r.entries[toolName]
		if spec == nil {
			continue
		}

		matches = append(matches, ToolMatch{
			ToolName:        toolName,
			MatchCount:      count,
			MatchedKeywords: matchedKeywords[toolName],
			Spec:            spec,
		})

		keywordMatchCount.WithLabelValues(toolName).Observe(float64(count))
	}

	r.sortMatches(matches)

	return matches
}

// sortMatches orders by match count descending, catalogue priority on ties.
func (r *ToolRegistry) sortMatches(matches []ToolMatch) {
	rank := make(map[string]int, len(r.priority))
	for i, name := range r.priority {
		rank[name] = i
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MatchCount != matches[j].MatchCount {
			return matches[i].MatchCount > matches[j].MatchCount
		}
		return rank[matches[i].ToolName] < rank[matches[j].ToolName]
	})
}

// ToolCount returns the number of tools in the catalogue.
//
// Thread Safety: Safe for concurrent use (read-only after initialization).
func (r *ToolRegistry) ToolCount() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// KeywordCount returns the number of unique keywords indexed.
func (r *ToolRegistry) KeywordCount() int {
	if r == nil {
		return 0
	}
	return len(r.keywordIndex)
}

// LoadedAt returns when the catalogue was loaded (Unix milliseconds UTC).
func (r *ToolRegistry) LoadedAt() int64 {
	if r == nil {
		return 0
	}
	return r.loadedAt
}

// =============================================================================
// Metric Helpers
// =============================================================================

// RecordRoutingDecision records a routing decision metric.
//
// Inputs:
//
//	toolName - The name of the tool that was selected.
//	source - The decision source ("extraction", "rescore", "none").
//
// Thread Safety: Safe for concurrent use.
func RecordRoutingDecision(toolName, source string) {
	toolRoutingDecisions.WithLabelValues(toolName, source).Inc()
}
