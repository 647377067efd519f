package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyExecutionID = "execution_id"
	KeyPipeline    = "pipeline"
	KeyModule      = "module"
	KeySource      = "source"
	KeyDocuments   = "documents"
	KeyChanged     = "changed"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyCacheKey    = "cache_key"
	KeyCacheHits   = "cache_hits"
	KeyCacheMisses = "cache_misses"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func ExecutionID(id string) slog.Attr { return slog.String(KeyExecutionID, id) }
func Pipeline(name string) slog.Attr  { return slog.String(KeyPipeline, name) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Source(src string) slog.Attr     { return slog.String(KeySource, src) }
func Documents(n int) slog.Attr       { return slog.Int(KeyDocuments, n) }
func Changed(n int) slog.Attr         { return slog.Int(KeyChanged, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func CacheKey(k string) slog.Attr     { return slog.String(KeyCacheKey, k) }
func CacheHits(n int64) slog.Attr     { return slog.Int64(KeyCacheHits, n) }
func CacheMisses(n int64) slog.Attr   { return slog.Int64(KeyCacheMisses, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
