//go:build !procheap_debug

package heap

const debugAssertions = false
