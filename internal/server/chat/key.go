// Package chat holds the conversation model: the canonical pair key, the
// immutable message record, and the append-only per-pair message log.
package chat

// Key derives the canonical conversation identifier for a pair of usernames.
// The two names are ordered lexicographically before joining, so
// Key(a, b) == Key(b, a) for every pair, including a == b.
func Key(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "::" + b
}
