//go:build procheap_notrace

package trace

// Enabled reports whether hook sites are compiled in.
const Enabled = false
