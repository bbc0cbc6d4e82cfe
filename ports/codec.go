package ports

import "github.com/chainterm/gatekeeper/core"

// SessionCodec seals session records into opaque client-held tokens
// and opens them again. Open must fail closed: every failure mode
// collapses into core.ErrNoSession.
type SessionCodec interface {
	Issue(session core.Session) (string, error)
	Open(token string) (core.Session, error)
}
