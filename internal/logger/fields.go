package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so aggregation/querying stays uniform.
const (
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	KeyOperation = "operation" // core operation name: LOOKUP, READ, WRITE, MAKE_NODE, ...
	KeyVault     = "vault"     // vault directory path

	KeyFileID   = "file_id"   // FileId the operation is scoped to
	KeyParentID = "parent_id" // parent directory FileId
	KeyName     = "name"      // directory entry name (plaintext, never the encrypted bytes)
	KeyKind     = "kind"      // FileKind: file, directory, symlink
	KeySize     = "size"      // logical (plaintext) size in bytes
	KeyMode     = "mode"      // Unix permission bits

	KeyOffset       = "offset"        // plaintext offset for a read/write
	KeyCount        = "count"         // byte count requested
	KeyBytesRead    = "bytes_read"    // actual bytes read
	KeyBytesWritten = "bytes_written" // actual bytes written
	KeyBlockIndex   = "block_index"   // ciphertext block index touched

	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // ErrorCode of the failing operation

	KeyBackend = "backend" // raw backend name: local, split, tracking, s3
	KeyAlgo    = "algo"    // block algorithm: aes-gcm, chacha20-poly1305, ...

	KeyLinkTarget = "link_target" // symbolic link target path
	KeyLinkCount  = "link_count"  // hard link count
	KeyEntries    = "entries"     // number of directory entries returned
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Operation returns a slog.Attr for the core operation name
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// Vault returns a slog.Attr for the vault directory
func Vault(path string) slog.Attr { return slog.String(KeyVault, path) }

// FileID returns a slog.Attr for a FileId, formatted as hex
func FileID(id uint64) slog.Attr { return slog.String(KeyFileID, fmt.Sprintf("%016x", id)) }

// ParentID returns a slog.Attr for a parent directory FileId
func ParentID(id uint64) slog.Attr { return slog.String(KeyParentID, fmt.Sprintf("%016x", id)) }

// Name returns a slog.Attr for a directory entry name
func Name(name string) slog.Attr { return slog.String(KeyName, name) }

// Kind returns a slog.Attr for a FileKind
func Kind(kind string) slog.Attr { return slog.String(KeyKind, kind) }

// Size returns a slog.Attr for a logical file size
func Size(s uint64) slog.Attr { return slog.Uint64(KeySize, s) }

// Mode returns a slog.Attr for Unix permission bits
func Mode(m uint16) slog.Attr { return slog.Any(KeyMode, m) }

// Offset returns a slog.Attr for a plaintext offset
func Offset(off uint64) slog.Attr { return slog.Uint64(KeyOffset, off) }

// Count returns a slog.Attr for a requested byte count
func Count(c int) slog.Attr { return slog.Int(KeyCount, c) }

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

// BlockIndex returns a slog.Attr for a ciphertext block index
func BlockIndex(idx uint64) slog.Attr { return slog.Uint64(KeyBlockIndex, idx) }

// DurationMs returns a slog.Attr for an operation duration in milliseconds
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric error code
func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

// Backend returns a slog.Attr for a raw backend name
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Algo returns a slog.Attr for a block algorithm name
func Algo(name string) slog.Attr { return slog.String(KeyAlgo, name) }

// LinkTarget returns a slog.Attr for a symbolic link target
func LinkTarget(target string) slog.Attr { return slog.String(KeyLinkTarget, target) }

// LinkCount returns a slog.Attr for a hard link count
func LinkCount(count uint32) slog.Attr { return slog.Any(KeyLinkCount, count) }

// Entries returns a slog.Attr for a number of directory entries
func Entries(n int) slog.Attr { return slog.Int(KeyEntries, n) }
