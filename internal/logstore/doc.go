// Package logstore keeps the workout log: one CSV file in a vault, read
// through a bounded cache and mutated by whole-file transforms.
//
// # Components
//
//   - Cache: parsed records with a TTL and a size ceiling; the only read path
//   - Schema: reads the header and appends custom columns on demand
//   - Repository: add, update, delete and rename against current file text
//   - ApplyFilter: normalized exact or fuzzy matching on exercise, workout
//     and protocol
//   - Store: composes the above and is what callers use
//
// # Consistency
//
// Every successful mutation clears the cache before returning. Mutations
// are serialized through one mutex shared by Repository and Schema, and
// each file change is a single vault Process call. Writers in other
// processes are not coordinated with; the cache TTL bounds how long their
// changes stay invisible.
//
// # Error policy
//
// Read-side problems degrade: malformed rows are skipped, a missing header
// reads as the standard columns and a missing file reads as empty.
// Write-side problems are returned as *StoreError and, for creation
// failures, also sent to the configured notifier.
package logstore
