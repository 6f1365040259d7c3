package synth

import "iter"

// pad returns a copy of xs with the first element repeated head times in
// front and the last element repeated tail times at the end.
func pad[T any](xs []T, head, tail int) []T {
	if len(xs) == 0 {
		return nil
	}
	out := make([]T, 0, len(xs)+head+tail)
	for range head {
		out = append(out, xs[0])
	}
	out = append(out, xs...)
	for range tail {
		out = append(out, xs[len(xs)-1])
	}
	return out
}

// windows yields every run of size consecutive elements of xs. The yielded
// slices alias xs and must not be retained.
func windows[T any](xs []T, size int) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		if size <= 0 {
			return
		}
		for i := 0; i+size <= len(xs); i++ {
			if !yield(xs[i : i+size : i+size]) {
				return
			}
		}
	}
}

// derive pads xs with head copies of its first element and tail copies of its
// last, applies f to every window of head+1+tail elements and returns one
// result per element of xs. Boundary elements see duplicated neighbours.
func derive[T, R any](xs []T, head, tail int, f func(w []T) R) []R {
	if len(xs) == 0 {
		return nil
	}
	out := make([]R, 0, len(xs))
	for w := range windows(pad(xs, head, tail), head+1+tail) {
		out = append(out, f(w))
	}
	return out
}
