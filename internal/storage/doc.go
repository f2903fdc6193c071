// Package storage defines the persistence boundary for the bonding engine.
//
// The fact journal is the source of truth; campaigns, contributions, pools,
// positions, and the treasury account are projections folded from it. The
// fold itself lives here (FoldEvent) so every implementation applies facts
// identically; implementations supply the journal, the read-model writes,
// and the per-campaign checkpoint that makes replay idempotent.
//
// Implementations live in subpackages: sqlite (durable, WAL) and memory
// (tests and the demo flow).
package storage
