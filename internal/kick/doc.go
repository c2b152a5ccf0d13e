// Package kick implements the Kick platform integration: the OAuth 2.0
// PKCE login flow, event subscription registration, and classification
// of inbound webhook payloads.
package kick
