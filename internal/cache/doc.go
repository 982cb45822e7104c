// Package cache memoizes expensive, re-derivable query results in process
// memory. Entries expire per lookup (the caller passes the maximum age it
// tolerates), can be invalidated individually or by key predicate, and can
// be dropped wholesale when the host signals memory pressure.
package cache
