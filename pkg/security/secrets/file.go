package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileProvider reads one secret per file from a directory.
type FileProvider struct {
	dir    string
	logger *slog.Logger

	mu      sync.RWMutex
	values  map[string]string
	watcher *fsnotify.Watcher
	done    chan struct{}
	notify  func(name string)
}

// NewFileProvider creates a provider over dir. With watch set, changes to
// the directory invalidate cached values.
func NewFileProvider(dir string, watch bool, logger *slog.Logger) (*FileProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", dir)
	}

	p := &FileProvider{
		dir:    dir,
		logger: logger.With("component", "secrets.file"),
		values: make(map[string]string),
		done:   make(chan struct{}),
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch secrets directory: %w", err)
		}
		p.watcher = watcher
		go p.watch()
	}

	p.logger.Info("file secret provider started", "path", dir, "watch", watch)
	return p, nil
}

// Get returns the trimmed contents of the file named name.
func (p *FileProvider) Get(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.values[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	path, err := p.path(name)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no file for %s", ErrSecretNotFound, redactName(name))
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", redactName(name))
	}
	if perm := info.Mode().Perm(); perm != 0600 && perm != 0400 {
		return "", fmt.Errorf("insecure permissions on secret file %s: %o (expected 0600 or 0400)", redactName(name), perm)
	}

	// #nosec G304 - path is confined to the secrets directory
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	value = strings.TrimSpace(string(data))

	p.mu.Lock()
	p.values[name] = value
	p.mu.Unlock()

	return value, nil
}

// Name returns "file".
func (p *FileProvider) Name() string {
	return "file"
}

// Has reports whether a regular file exists for name.
func (p *FileProvider) Has(name string) bool {
	path, err := p.path(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Invalidate drops every cached value.
func (p *FileProvider) Invalidate() {
	p.mu.Lock()
	p.values = make(map[string]string)
	p.mu.Unlock()
}

// OnChange registers fn to be called after a watched file is written,
// created or removed.
func (p *FileProvider) OnChange(fn func(name string)) {
	p.mu.Lock()
	p.notify = fn
	p.mu.Unlock()
}

// Close stops the watcher.
func (p *FileProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	return p.watcher.Close()
}

func (p *FileProvider) path(name string) (string, error) {
	base, err := filepath.Abs(p.dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve secrets directory: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(p.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve secret path: %w", err)
	}
	if !strings.HasPrefix(path, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret name %q: escapes secrets directory", name)
	}
	return path, nil
}

func (p *FileProvider) watch() {
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			name := filepath.Base(event.Name)
			p.logger.Debug("secret file changed", "name", redactName(name), "op", event.Op.String())
			p.Invalidate()
			p.mu.RLock()
			notify := p.notify
			p.mu.RUnlock()
			if notify != nil {
				notify(name)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("secret watcher error", "error", err)
		case <-p.done:
			return
		}
	}
}
