// Package graph loads declaration-graph fixtures from TOML unit files
// and completes them the way a frontend's type system would: accessor
// declarations for properties, implicit override links, and fake
// overrides synthesized onto class surfaces for inherited members.
package graph
