package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// Request correlation
	KeyTraceID   = "trace_id"   // Request correlation ID
	KeyRequestID = "request_id" // HTTP/WebSocket request ID
	KeyOp        = "op"         // Operation name: create_file, rename, broadcast, ...

	// Virtual file system
	KeyRootKey    = "root_key"    // Logical file-system root tag
	KeyPath       = "path"        // Full file/directory path
	KeyFilename   = "filename"    // File or directory name (basename)
	KeyParentPath = "parent_path" // Parent directory path
	KeyOldPath    = "old_path"    // Source path for rename/move operations
	KeyNewPath    = "new_path"    // Destination path for rename/move operations
	KeyUUID       = "uuid"        // Stable node identifier
	KeyOrdinal    = "ordinal"     // Presentation ordinal within a directory
	KeyOwnerID    = "owner_id"    // Owning user id (0 = admin)
	KeySize       = "size"        // Payload size in bytes
	KeyEntries    = "entries"     // Number of directory entries

	// Signaling / chat
	KeyRoom      = "room"       // Room name
	KeyUser      = "user"       // Display name of the acting user
	KeyTarget    = "target"     // Signaling target username
	KeyMsgType   = "msg_type"   // Wire message type (join, offer, broadcast, ...)
	KeyMessageID = "message_id" // Client-chosen message id
	KeyPublicKey = "public_key" // Publisher public key

	// Client identification
	KeyClientIP = "client_ip" // Client IP address

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // Typed error kind name
)

// Field constructors for type safety.

// TraceID returns a slog.Attr for the request correlation ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// Op returns a slog.Attr for the operation name
func Op(name string) slog.Attr {
	return slog.String(KeyOp, name)
}

// RootKey returns a slog.Attr for the VFS root key
func RootKey(key string) slog.Attr {
	return slog.String(KeyRootKey, key)
}

// Path returns a slog.Attr for a file/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a filename (basename)
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// ParentPath returns a slog.Attr for a parent directory path
func ParentPath(p string) slog.Attr {
	return slog.String(KeyParentPath, p)
}

// OldPath returns a slog.Attr for the source path in rename/move operations
func OldPath(p string) slog.Attr {
	return slog.String(KeyOldPath, p)
}

// NewPath returns a slog.Attr for the destination path in rename/move operations
func NewPath(p string) slog.Attr {
	return slog.String(KeyNewPath, p)
}

// UUID returns a slog.Attr for a node uuid
func UUID(id string) slog.Attr {
	return slog.String(KeyUUID, id)
}

// Ordinal returns a slog.Attr for a directory ordinal
func Ordinal(n int32) slog.Attr {
	return slog.Int(KeyOrdinal, int(n))
}

// OwnerID returns a slog.Attr for the owning user id
func OwnerID(id int64) slog.Attr {
	return slog.Int64(KeyOwnerID, id)
}

// Size returns a slog.Attr for a payload size
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// Entries returns a slog.Attr for a directory entry count
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// Room returns a slog.Attr for a room name
func Room(name string) slog.Attr {
	return slog.String(KeyRoom, name)
}

// User returns a slog.Attr for a username
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// Target returns a slog.Attr for a signaling target
func Target(name string) slog.Attr {
	return slog.String(KeyTarget, name)
}

// MsgType returns a slog.Attr for a wire message type
func MsgType(t string) slog.Attr {
	return slog.String(KeyMsgType, t)
}

// MessageID returns a slog.Attr for a chat message id
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// PublicKey returns a slog.Attr for a publisher public key
func PublicKey(key string) slog.Attr {
	return slog.String(KeyPublicKey, key)
}

// ClientIP returns a slog.Attr for a client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for a typed error kind name
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}
