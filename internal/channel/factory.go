//go:build !debug

package channel

// New creates a channel with the given buffer size. Debug builds return an
// unbuffered channel instead, which surfaces consumers that fall behind.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
