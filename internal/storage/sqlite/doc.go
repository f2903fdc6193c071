// Package sqlite provides the SQLite-backed store for the bonding engine.
//
// It persists the append-only fact journal and the read models folded from
// it. The journal is the source of truth; every projection table can be
// rebuilt by replaying facts through ApplyProjection.
package sqlite
