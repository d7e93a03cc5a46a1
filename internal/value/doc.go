// Package value provides the loosely-typed value model shared by every
// paramx package.
//
// Payloads arrive as flat mappings of field names to arbitrary values. Inside
// paramx those values are represented by the sealed Value interface, whose
// variants mirror what a JSON/YAML decoder can produce plus two extras:
// Func (callables carried through a payload) and Opaque (anything else, such
// as a time.Time). Undefined marks an absent key and is distinct from Null.
//
// This package imports nothing internal. Key constraints:
//   - A nil Value behaves exactly like Undefined
//   - Classify is a closed type switch; there is no reflection in the hot path
//   - Canonical JSON is the only serialization used for hashing
package value
