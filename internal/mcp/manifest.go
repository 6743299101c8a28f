package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// manifestDocument accepts both wire shapes a manifest file may take: a
// bare array of servers, or an object with a "servers" key.
type manifestDocument struct {
	Servers []*ServerConfig `json:"servers"`
}

// LoadManifestFile parses a single MCP server manifest file. Only stdio
// transport servers are accepted — manifests are meant for locally
// spawned tool subprocesses, not remote HTTP MCP servers (§4.5/§6).
func LoadManifestFile(path string) ([]*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: read manifest %s: %w", path, err)
	}

	var servers []*ServerConfig
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		if err := json.Unmarshal(data, &servers); err != nil {
			return nil, fmt.Errorf("mcp: parse manifest %s: %w", path, err)
		}
	default:
		var doc manifestDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("mcp: parse manifest %s: %w", path, err)
		}
		servers = doc.Servers
	}

	for _, server := range servers {
		if server.Transport == "" {
			server.Transport = TransportStdio
		}
		if server.Transport != TransportStdio {
			return nil, fmt.Errorf("mcp: manifest %s: server %q uses unsupported transport %q (stdio only)", path, server.ID, server.Transport)
		}
		if err := server.Validate(); err != nil {
			return nil, fmt.Errorf("mcp: manifest %s: %w", path, err)
		}
	}
	return servers, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}

// DiscoverManifests loads a single manifest file (if set) plus every
// "*.json" manifest found directly under each of dirs, merging all
// discovered servers. Later duplicate IDs overwrite earlier ones.
func DiscoverManifests(manifestPath string, dirs []string) ([]*ServerConfig, error) {
	byID := make(map[string]*ServerConfig)
	order := make([]string, 0)

	add := func(servers []*ServerConfig) {
		for _, server := range servers {
			if _, exists := byID[server.ID]; !exists {
				order = append(order, server.ID)
			}
			byID[server.ID] = server
		}
	}

	if manifestPath != "" {
		servers, err := LoadManifestFile(manifestPath)
		if err != nil {
			return nil, err
		}
		add(servers)
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("mcp: scan manifest dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			servers, err := LoadManifestFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			add(servers)
		}
	}

	out := make([]*ServerConfig, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}
