package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mercator-hq/sovereign/pkg/config"
)

// Server owns the serving certificate for the operational endpoint.
type Server struct {
	cfg        config.TLSConfig
	minVersion uint16
	clientCAs  *x509.CertPool
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.RWMutex
	cert *tls.Certificate
	leaf *x509.Certificate

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewServer loads the certificate pair and, when configured, the client
// CA. With watch set the certificate and key directories are observed and
// the pair is reloaded on change.
func NewServer(cfg config.TLSConfig, watch bool, logger *slog.Logger) (*Server, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}
	if logger == nil {
		logger = slog.Default()
	}
	minVersion, err := ParseMinVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		minVersion: minVersion,
		logger:     logger.With("component", "tls"),
		now:        time.Now,
		done:       make(chan struct{}),
	}

	if cfg.ClientCAFile != "" {
		// #nosec G304 - CA path comes from operator configuration.
		pem, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse client CA certificate %s", cfg.ClientCAFile)
		}
		s.clientCAs = pool
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}

	if watch {
		if err := s.startWatcher(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Config returns a tls.Config serving the current certificate.
func (s *Server) Config() *tls.Config {
	// #nosec G402 - MinVersion is restricted to TLS 1.2 or 1.3.
	cfg := &tls.Config{
		MinVersion: s.minVersion,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			return s.Certificate(), nil
		},
	}
	if s.clientCAs != nil {
		cfg.ClientCAs = s.clientCAs
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}

// Certificate returns the most recently loaded pair.
func (s *Server) Certificate() *tls.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cert
}

// Reload reads the pair from disk. On error the previous pair is kept.
func (s *Server) Reload() error {
	cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := ValidateCertificate(&cert, s.now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cert = &cert
	s.leaf = leaf
	s.mu.Unlock()

	s.logCertificate(leaf)
	return nil
}

// HealthCheck fails once the serving certificate has expired.
func (s *Server) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	leaf := s.leaf
	s.mu.RUnlock()
	if leaf == nil {
		return fmt.Errorf("no certificate loaded")
	}
	if now := s.now(); now.After(leaf.NotAfter) {
		return fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// Close stops the watcher.
func (s *Server) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	return err
}

func (s *Server) logCertificate(leaf *x509.Certificate) {
	soon, days := ExpiresSoon(leaf, s.now())
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", days,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	}
	if soon {
		s.logger.Warn("certificate expiring soon", attrs...)
		return
	}
	s.logger.Info("certificate loaded", attrs...)
}

func (s *Server) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create certificate watcher: %w", err)
	}
	dirs := map[string]struct{}{
		filepath.Dir(s.cfg.CertFile): {},
		filepath.Dir(s.cfg.KeyFile):  {},
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	s.watcher = watcher
	s.wg.Add(1)
	go s.watch(watcher)
	return nil
}

// watch reloads on writes or renames of either file. Directories are
// watched rather than files so atomic replacements are seen.
func (s *Server) watch(watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	cert, key := filepath.Clean(s.cfg.CertFile), filepath.Clean(s.cfg.KeyFile)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != cert && name != key {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				// Cert and key are often replaced one at a time; the
				// second event completes the pair.
				s.logger.Debug("certificate reload deferred", "file", name, "error", err)
				continue
			}
			s.logger.Info("certificate reloaded", "file", name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("certificate watcher error", "error", err)
		case <-s.done:
			return
		}
	}
}
