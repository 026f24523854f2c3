package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // Request correlation ID
	Op        string    // Operation name (create_file, rename, broadcast, ...)
	RootKey   string    // VFS root key (usr, pgroot, ...)
	Room      string    // Signaling room name
	User      string    // Display name of the acting user
	ClientIP  string    // Client IP address (without port)
	OwnerID   int64     // VFS owner id (0 = admin)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	out := *lc
	return &out
}

// WithOp returns a copy with the operation name set
func (lc *LogContext) WithOp(op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Op = op
	}
	return clone
}

// WithRoot returns a copy with the root key set
func (lc *LogContext) WithRoot(rootKey string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RootKey = rootKey
	}
	return clone
}

// WithRoom returns a copy with the room and user set
func (lc *LogContext) WithRoom(room, user string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Room = room
		clone.User = user
	}
	return clone
}

// WithOwner returns a copy with the owner id set
func (lc *LogContext) WithOwner(ownerID int64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.OwnerID = ownerID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
