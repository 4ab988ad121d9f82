// Package trace records allocator and collector events.
//
// Heaps call a Recorder for every allocation, large-object free, collection,
// growth and exhaustion when one is installed. Events encode to compact
// protobuf-wire records; StreamSink writes them length-delimited, optionally
// compressed, and StreamReader reads them back.
//
// Building with the procheap_notrace tag turns Enabled into a false constant
// so every hook site compiles away.
package trace
