package policyconfig

// Default returns the built-in default configuration, per spec.md §4.12
// ("deep-merge with built-in defaults"). workspaceRoot is the
// caller-supplied fallback used when a loaded config omits workspace_root.
func Default(workspaceRoot string) *Config {
	return &Config{
		Version:       1,
		WorkspaceRoot: workspaceRoot,
		Normalization: Normalization{
			Filesystem: FilesystemNormalization{
				CollapseTemp: true,
				CollapseHome: true,
				IgnoreGlobs:  nil,
			},
			Network: NetworkNormalization{
				NormalizeHosts: true,
			},
			Exec: ExecNormalization{
				ArgvMode:     ArgvModeFull,
				MaskPatterns: nil,
			},
		},
		Redaction: Redaction{
			RedactPaths: nil,
			RedactURLs:  nil,
			HashValues:  false,
		},
		Policy: Policy{
			Filesystem: FilesystemPolicy{EnforceAllowlist: false},
			Network:    NetworkPolicy{EnforceAllowlist: false},
			Exec:       ExecPolicy{EnforceAllowlist: false},
			Sensitive:  SensitivePolicy{},
		},
	}
}
