// Package network exposes the verification service over HTTP.
//
// # Routes
//
// POST /verify analyzes a piece of news and anchors the verdict in the
// ledger. POST /lookup resolves a block hash returned by /verify.
//
// GET /chain and GET /chain/verify dump and audit the whole chain. GET /stats,
// GET /node and GET /health report service state, and GET /metrics serves the
// Prometheus registry passed with WithMetrics.
//
// # TLS
//
// WithCertificate switches the server to HTTPS. GenerateSelfSignedCert builds
// a throwaway certificate for local deployments.
package network
