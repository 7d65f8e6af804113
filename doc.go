// Package ashstorage is a path-addressed object storage layer.
//
// Values are addressed by dot-delimited paths ("homes.base.x"). A Container sits in front of a
// Backend and provides:
//
//   - a TTL object cache for reads and writes,
//   - pending write/delete sets drained into the backend by Flush, periodically or on a cron spec,
//   - immediate asynchronous Store/Delete that complete the backend once per operation,
//   - decomposition of registered Go types into primitive path/value fragments and their
//     asynchronous recomposition, including nested objects and lists of objects.
//
// Decomposers are registered per concrete type on an API, which also carries the task scheduler
// used for background work. Typed reads are package-level generic functions (RetrieveAs, Get, ...)
// because methods cannot have type parameters.
package ashstorage
