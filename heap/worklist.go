package heap

// workList is the explicit LIFO used wherever a term graph is traversed, so
// traversal depth never depends on the Go call stack.
type workList[T any] struct {
	items []T
}

func (w *workList[T]) push(v T) {
	w.items = append(w.items, v)
}

func (w *workList[T]) pop() (T, bool) {
	n := len(w.items)
	if n == 0 {
		var zero T
		return zero, false
	}
	v := w.items[n-1]
	w.items = w.items[:n-1]
	return v, true
}

func (w *workList[T]) len() int {
	return len(w.items)
}
