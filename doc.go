// Package recache layers an invalidation-aware cache over an arbitrary
// key-value backend. Cached values are tagged with the identities of the
// domain records they contain; mutating any such record deterministically
// evicts or rewrites every cache entry that contains it, replacing the
// ad-hoc "which keys to purge on which write" bookkeeping callers usually
// maintain by hand.
//
// Components:
//   - Backend: key-value store with optional native set and multi-get
//     capabilities (e.g. in-process map, Redis, BigCache, Ristretto).
//   - Registry: bidirectional map between cache-key strings and compact
//     64-bit identifiers; reverse-index membership is stored as identifiers.
//   - Index: per record identity and per record type, the set of identifiers
//     whose cache entries contain that record.
//   - Set Lock: partitioned in-process lock table that emulates atomic set
//     mutation on backends without native sets.
//
// Keys:
//
//	<key>:<canonical-json-params> - cache entries (see Keyer)
//	__set:<type>                  - type index sets (cached collections)
//	__set:<type>:<pk>[:<pk>...]   - instance index sets
//
// The "__set:" keyspace is owned by recache; caller keys must not collide
// with it.
//
// Read-through pattern:
//
//	v, err := eng.Read(ctx, "find_user", map[string]any{"id": 5}, 0, fetchUser)
//	_, err  = eng.Update(ctx, updateUser, recache.StrategyEvict)
package recache
