// Package literal holds values shared read-only by every process of a
// runtime: the literal area of constant terms and the atom table.
//
// Terms are interned into an Area from a process heap while the runtime is
// being set up; after Seal the area never changes and any number of heaps
// may read it concurrently. Collectors never trace into it and message
// copies keep literal pointers as they are.
package literal
