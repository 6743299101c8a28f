package mcp

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ManifestWatcher reloads MCP server manifests from a set of directories
// whenever a ".json" file inside them changes, feeding the result to
// onChange. Used alongside DiscoverManifests for live manifest reload
// (§4.5/§6: manifest_dirs are "watched for changes").
type ManifestWatcher struct {
	manifestPath string
	dirs         []string
	logger       *slog.Logger
	onChange     func([]*ServerConfig)
}

// NewManifestWatcher builds a watcher bound to the same manifest_path +
// manifest_dirs inputs DiscoverManifests accepts.
func NewManifestWatcher(manifestPath string, dirs []string, logger *slog.Logger, onChange func([]*ServerConfig)) *ManifestWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestWatcher{manifestPath: manifestPath, dirs: dirs, logger: logger.With("component", "mcp.watch"), onChange: onChange}
}

// Run watches the configured directories until ctx is done, invoking
// onChange with the freshly merged server list on every relevant
// filesystem event. It returns after doing an initial synchronous
// discovery pass, or if the watcher fails to start.
func (w *ManifestWatcher) Run(ctx context.Context) error {
	servers, err := DiscoverManifests(w.manifestPath, w.dirs)
	if err != nil {
		return err
	}
	w.onChange(servers)

	if len(w.dirs) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("manifest watcher unavailable, falling back to static discovery", "error", err)
		return nil
	}

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch manifest directory", "dir", dir, "error", err)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				servers, err := DiscoverManifests(w.manifestPath, w.dirs)
				if err != nil {
					w.logger.Error("manifest reload failed", "error", err)
					continue
				}
				w.onChange(servers)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("manifest watcher error", "error", err)
			}
		}
	}()

	return nil
}
