//go:build procheap_debug

package heap

// debugAssertions makes layout violations crash instead of killing only the
// owning process.
const debugAssertions = true
