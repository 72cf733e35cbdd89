// Package models defines the core domain models for test-run orchestration and CI dispatch.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ProviderType identifies the CI provider an execution target points at.
type ProviderType string

const (
	ProviderGitLab ProviderType = "gitlab" // GitLab pipeline trigger
	ProviderGitHub ProviderType = "github" // GitHub Actions workflow dispatch
	ProviderManual ProviderType = "manual" // No CI call, results reported by a human
)

// IsValid reports whether the provider type is one of the known providers.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderGitLab, ProviderGitHub, ProviderManual:
		return true
	default:
		return false
	}
}

// ExecutionTarget is an immutable snapshot of where a test run executes:
// a provider configuration reference plus provider-specific run parameters.
// A target is meaningless without a resolvable IntegrationID except for the
// manual provider.
type ExecutionTarget struct {
	IntegrationID string            `json:"integration_id"`
	Name          string            `json:"name"`
	Type          ProviderType      `json:"type" validate:"required"`
	Config        map[string]string `json:"config,omitempty"`
}

// Ref returns the flat "ref" config entry kept for compatibility with
// targets recorded before provider-specific config shapes existed.
func (t *ExecutionTarget) Ref() string {
	return t.Config["ref"]
}

// Clone returns a deep copy so callers can hold the snapshot without
// sharing the config map.
func (t *ExecutionTarget) Clone() *ExecutionTarget {
	if t == nil {
		return nil
	}

	clone := &ExecutionTarget{
		IntegrationID: t.IntegrationID,
		Name:          t.Name,
		Type:          t.Type,
	}

	if t.Config != nil {
		clone.Config = make(map[string]string, len(t.Config))
		for k, v := range t.Config {
			clone.Config[k] = v
		}
	}

	return clone
}

// Fingerprint returns a deterministic identifier for the target's semantic
// identity: integration id, provider type and a canonical serialization of
// the config map. Two targets with equal fingerprints are treated as the
// same execution target when grouping test cases into runs.
func (t *ExecutionTarget) Fingerprint() string {
	keys := make([]string, 0, len(t.Config))
	for k := range t.Config {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(t.IntegrationID)
	b.WriteByte('|')
	b.WriteString(string(t.Type))

	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(t.Config[k])
	}

	sum := sha256.Sum256([]byte(b.String()))

	return hex.EncodeToString(sum[:])
}
