// Package security holds the TLS settings shared by the HTTP server and
// remote stream connections.
//
// A server presents CertFile and KeyFile and, with CAFile set, requires
// clients to present a certificate signed by that CA. A client verifies the
// server against CAFile and presents its key pair for mutual TLS:
//
//	cfg := security.TLSConfig{CAFile: "/etc/edgecam/ca.pem"}
//	clientTLS, err := cfg.Client()
package security
