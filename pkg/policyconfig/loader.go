package policyconfig

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a policy YAML file at path, deep-merges it over the built-in
// defaults, schema-validates the result, and resolves a relative
// workspace_root against fallbackWorkspaceRoot, per spec.md §4.12.
//
// A missing file is not an error: it yields the defaults. A malformed file
// or a schema validation failure logs the problem and also falls back to
// defaults, per spec.md §7's config propagation policy ("log details, fall
// back to defaults, continue").
func Load(path, fallbackWorkspaceRoot string) *Config {
	defaults := Default(fallbackWorkspaceRoot)

	if path == "" {
		return defaults
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults
	}
	if err != nil {
		slog.Warn("policyconfig: read failed, using defaults", "path", path, "error", err)
		return defaults
	}

	var provided map[string]interface{}
	if err := yaml.Unmarshal(raw, &provided); err != nil {
		slog.Warn("policyconfig: parse failed, using defaults", "path", path, "error", err)
		return defaults
	}
	if provided == nil {
		provided = map[string]interface{}{}
	}

	applyLegacyRename(provided)

	defaultsMap, err := toGenericMap(defaults)
	if err != nil {
		slog.Warn("policyconfig: internal default-encode failure, using defaults", "error", err)
		return defaults
	}

	merged := deepMerge(defaultsMap, provided)

	if err := validateSchema(merged); err != nil {
		slog.Warn("policyconfig: schema validation failed, using defaults", "path", path, "error", err)
		return defaults
	}

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		slog.Warn("policyconfig: re-encode failed, using defaults", "error", err)
		return defaults
	}

	var cfg Config
	if err := json.Unmarshal(mergedJSON, &cfg); err != nil {
		slog.Warn("policyconfig: decode into Config failed, using defaults", "error", err)
		return defaults
	}

	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = fallbackWorkspaceRoot
	}
	if !filepath.IsAbs(cfg.WorkspaceRoot) {
		cfg.WorkspaceRoot = filepath.Join(fallbackWorkspaceRoot, cfg.WorkspaceRoot)
	}

	return &cfg
}

// applyLegacyRename maps the legacy redact_hosts field onto redact_urls
// when only the old name is present, per spec.md §4.12.
func applyLegacyRename(provided map[string]interface{}) {
	redactionRaw, ok := provided["redaction"]
	if !ok {
		return
	}
	redaction, ok := redactionRaw.(map[string]interface{})
	if !ok {
		return
	}
	if _, hasNew := redaction["redact_urls"]; hasNew {
		return
	}
	if legacy, hasOld := redaction["redact_hosts"]; hasOld {
		redaction["redact_urls"] = legacy
	}
}

// toGenericMap round-trips v through JSON to obtain a map[string]interface{}
// representation suitable for deepMerge and schema validation. Null fields
// (nil slices) are dropped so they do not fail the schema's type checks.
func toGenericMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var dropNulls func(map[string]interface{})
	dropNulls = func(obj map[string]interface{}) {
		for k, val := range obj {
			switch t := val.(type) {
			case nil:
				delete(obj, k)
			case map[string]interface{}:
				dropNulls(t)
			}
		}
	}
	dropNulls(m)
	return m, nil
}

// deepMerge overlays src onto dst, recursing into nested objects and
// replacing scalars, arrays, and absent branches wholesale, per the
// leaf-precedence merge spec.md §4.12 calls for. dst is mutated and
// returned.
func deepMerge(dst, src map[string]interface{}) map[string]interface{} {
	for k, sv := range src {
		dv, exists := dst[k]
		if !exists {
			dst[k] = sv
			continue
		}
		dMap, dIsMap := dv.(map[string]interface{})
		sMap, sIsMap := sv.(map[string]interface{})
		if dIsMap && sIsMap {
			dst[k] = deepMerge(dMap, sMap)
			continue
		}
		dst[k] = sv
	}
	return dst
}
