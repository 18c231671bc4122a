// Package spans correlates observed ACP traffic into a distributed
// trace and metrics.
//
// Manager consumes classified protocol lines in arrival order and
// maintains three overlapping lifetimes: request/response pairing
// (pending table keyed by canonical request id), per-session prompt
// streaming (one active prompt span per session, accumulated output,
// time to first chunk), and tool-call lifecycles (spans keyed by
// tool-call id, opened and closed by session/update notifications).
// One root span covers the whole ACP session and parents everything
// else, so a conversation shows up as a single coherent trace.
//
// Manager is not safe for concurrent use. The proxy funnels both pipe
// directions through one ordered queue with a single consumer, so all
// state mutation happens on that consumer's goroutine and no locking
// is needed.
package spans
