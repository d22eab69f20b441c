// Package profiler records the SQL statements executed while serving each
// HTTP request and exposes them in a small web panel.
//
// Collector is a middleware: every request gets a token, returned in the
// X-Debug-Token header, and a db.Recorder carried by the request context.
// Once the handler returns, the recorded statements are saved as a Profile
// in a ProfileStore (MemoryStore or RedisStore).
//
// Panel serves:
//
//   - /_profiler/orm/configuration: datasources and logging flag
//   - /_profiler/{token}/orm: the statements of a profile
//   - /_profiler/{token}/orm/explain/{connection}/{query}: EXPLAIN output of
//     one statement, run on the named connection
package profiler
