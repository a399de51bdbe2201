// Package policy decides whether an origin response may enter the full-page
// cache and, when it may, pushes it into the cache store. The decision is an
// ordered rule chain: the first rule that applies yields the reported Reason.
// The engine holds no state of its own; environment and diagnostic-header
// settings arrive through Options at construction time, and header changes are
// returned in an Outcome for the caller to apply.
package policy
