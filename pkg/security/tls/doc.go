// Package tls serves the operational endpoint over HTTPS.
//
// A Server loads the PEM certificate and key named in config.TLSConfig,
// optionally a client CA for mutual TLS, and hands out a *tls.Config whose
// GetCertificate always returns the most recently loaded pair. When
// watching is enabled the certificate directory is observed with fsnotify
// and the pair is reloaded on change, so renewals take effect without a
// restart. A failed reload keeps the previous certificate.
//
// Example:
//
//	srv, err := tls.NewServer(cfg.Server.TLS, true, logger)
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//
//	httpServer.TLSConfig = srv.Config()
//	httpServer.ServeTLS(ln, "", "")
package tls
