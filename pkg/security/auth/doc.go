// Package auth guards the operational endpoint with bearer tokens.
//
// Tokens are held only as SHA-256 digests and compared in constant time.
// Requests carry the token as "Authorization: Bearer <token>". Paths
// listed as public, typically the liveness probe, bypass the check so
// orchestrators can probe without credentials.
//
// An empty token set disables the guard; Handle then returns next as is.
package auth
