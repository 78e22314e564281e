// Package rules provides the rules registry used by the default-alert
// reconciler: find rules by rule-type id, create and update them.
//
// Three registries are available:
//   - Memory     mutex-guarded map, used by tests and single-process setups
//   - SQLite     embedded database file (github.com/mattn/go-sqlite3)
//   - Postgres   shared database (github.com/jackc/pgx/v5)
//
// All three also implement AtomicCreator: CreateIfAbsent inserts a default
// rule only when no rule of the same kind carries the default marker tag,
// so concurrent reconciliations cannot provision duplicates.
package rules
