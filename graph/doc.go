// Package graph provides the declarative state graph model used by the
// transition engine: states, their timeouts/retries/TTLs, and the
// transition edges between them.
//
// A StateGraph is built once at startup via Builder and is immutable and
// safe for concurrent use afterward: every worker goroutine shares the same
// graph without locking.
package graph
