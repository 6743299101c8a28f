package config

// ServerConfig controls the HTTP surface the orchestrator listens on.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WorkspaceConfig points the tool registry at the filesystem root tool
// calls are resolved against.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}
