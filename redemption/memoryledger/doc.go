// Package memoryledger provides an in-memory redemption.Ledger backed by a
// bounded LRU cache. Records are process local and discarded on exit.
//
// Characteristics
//
//	Durability        : none (RAM only)
//	Horizontal scale  : no (process local)
//	Capacity          : bounded; the least recently redeemed hash is evicted first
//	Concurrency       : safe (single mutex around check-and-set)
//
// An evicted record no longer blocks replay, so size the cache above the number
// of credentials expected to be live at once. Use redisledger when more than
// one process serves the same paywall.
//
// Example:
//
//	ledger, _ := memoryledger.New(memoryledger.WithSize(50_000))
//	defer ledger.Close()
package memoryledger
