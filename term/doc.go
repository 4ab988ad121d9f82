// Package term defines the tagged-word representation of runtime values.
//
// A Term is a single 64-bit word. The low four bits are the primary tag.
// Immediate terms (small integers, atoms, nil, pids, local references,
// booleans) carry their whole value in the word. Boxed terms carry the kind of
// the object they reference and its address inside the owning process heap;
// literal terms do the same for the shared, read-only literal area.
//
// # Word Layout
//
//	 63                                 8 7    4 3    0
//	┌────────────────────────────────────┬──────┬──────┐
//	│ address / payload                  │ kind │ tag  │  boxed, literal
//	├────────────────────────────────────┴──────┼──────┤
//	│ signed 60-bit value / index                │ tag  │  immediates
//	├─────────────────────────┬─────────┬──────┬──────┤
//	│ size field (48 bits)    │ age (8) │ kind │ 0x9  │  header
//	└─────────────────────────┴─────────┴──────┴──────┘
//
// Every heap object starts with a header word. During a collection the
// header of a relocated object is overwritten with a forwarding word (tag
// 0xA) holding the new address; forwarding words never escape a collection.
//
// # Object Layouts
//
// Layout describes, for a header, the object size in words and the contiguous
// run of word slots that hold child terms. Collectors use it to trace
// objects without knowing anything else about their kinds.
package term
