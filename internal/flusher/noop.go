package flusher

// NoOpFlusher is used when automatic flushing is disabled.
// Pending changes reach the backend only through explicit flushes.
type NoOpFlusher struct{}

// Reset does nothing.
func (NoOpFlusher) Reset() {}

// Metrics always returns zero values.
func (NoOpFlusher) Metrics() (runs, failures, skipped int64) {
	return 0, 0, 0
}

// Close does nothing and returns nil.
func (NoOpFlusher) Close() error {
	return nil
}
