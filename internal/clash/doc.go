// Package clash detects generated-name collisions between distinct
// declarations that land in the same flattened class or package scope.
//
// The checker is driven one declaration at a time by an external caller
// that owns traversal order. It keeps two memoized structures for the
// lifetime of a pass: a per-owner flattened name table (built lazily on
// first lookup, covering declared members and, for classes, the full
// inherited surface) and a registry of conflicts among fake overrides,
// used to fold the same ancestor-level conflict into one report per
// inheriting class instead of one per subclass pair.
//
// Name stability, scope targeting and leaf spelling are delegated to an
// injected naming.Suggester; only stable names participate in clash
// detection. Everything here is single-threaded: one Checker instance
// must never be shared across goroutines.
package clash
