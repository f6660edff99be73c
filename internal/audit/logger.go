package audit

import (
	"net"
	"net/http"
	"strings"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one audit record.
type Entry struct {
	Action       string
	Actor        string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Status       string
	Details      map[string]string
}

// Logger writes audit records as structured log lines tagged audit=true so
// they can be routed separately from access logs.
type Logger struct {
	logger zerolog.Logger
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{logger: logger.With().Bool("audit", true).Logger()}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return NewLogger(zerolog.Nop())
}

func (l *Logger) Log(entry Entry) {
	if l == nil {
		return
	}
	event := l.logger.Info()
	if entry.Status == StatusFailure {
		event = l.logger.Warn()
	}
	event = event.
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("status", entry.Status)
	if entry.ResourceType != "" {
		event = event.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != "" {
		event = event.Str("resource_id", entry.ResourceID)
	}
	if entry.IPAddress != "" {
		event = event.Str("ip_address", entry.IPAddress)
	}
	if len(entry.Details) > 0 {
		dict := zerolog.Dict()
		for k, v := range entry.Details {
			dict = dict.Str(k, v)
		}
		event = event.Dict("details", dict)
	}
	event.Msg("audit")
}

// LogFromRequest records an action performed by the authenticated caller of r.
// Callers without an identity, such as failed logins, are logged under actor.
func (l *Logger) LogFromRequest(r *http.Request, action, actor, resourceType, resourceID, status string, details map[string]string) {
	if l == nil || r == nil {
		return
	}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		actor = id.Username
	}
	if actor == "" {
		actor = "anonymous"
	}
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    clientIP(r),
		Status:       status,
		Details:      details,
	})
}

// clientIP is the direct peer address. Audit records keep the address the
// server actually saw; forwarding headers are attacker controlled.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
