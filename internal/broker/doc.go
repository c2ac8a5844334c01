// Package broker implements the OAuth authorization-code relay service.
//
// The broker lets the CLI authenticate against Zoom without embedding a
// client secret: the CLI starts a session, the user approves access in a
// browser, the broker exchanges the authorization code server-side, and the
// CLI collects the resulting token bundle by polling. Token bundles are held
// in a TTL-bound store and delivered at most once.
//
// # Endpoints
//
//	POST /zoom/auth/start     create a session, return the authorize URL
//	GET  /callback            provider redirect target, exchanges the code
//	GET  /zoom/auth/poll      one-time token pickup for a session
//	POST /zoom/token/refresh  stateless refresh relay
//
// No token material is ever returned to the browser; the callback renders a
// plain confirmation page and the tokens are only readable through poll.
package broker
