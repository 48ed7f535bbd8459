package builder

import "sync"

// DefaultTailSize is how much of the packaging tool's
// output is kept for diagnosing a failed build.
const DefaultTailSize = 64 * 1024

// tailBuffer is an io.Writer that keeps only the
// last size bytes that were written to it.
type tailBuffer struct {
	mu   sync.Mutex
	size int
	buf  []byte
}

func newTailBuffer(size int) *tailBuffer {
	if size <= 0 {
		size = DefaultTailSize
	}

	return &tailBuffer{size: size}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.size {
		t.buf = append(t.buf[:0], p[n-t.size:]...)
		return n, nil
	}

	if over := len(t.buf) + n - t.size; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}

	t.buf = append(t.buf, p...)

	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(t.buf)
}
