package exec

import (
	"bytes"
	"io"
	"sync"
)

// lockedBuffer is a bytes.Buffer safe for the two copier goroutines of os/exec.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// outputCapture captures a stream and optionally tees it to a passthrough writer.
type outputCapture struct {
	lockedBuffer
	passthrough io.Writer
}

func newOutputCapture(passthrough io.Writer) *outputCapture {
	return &outputCapture{passthrough: passthrough}
}

func (o *outputCapture) Write(p []byte) (int, error) {
	n, err := o.lockedBuffer.Write(p)
	if err != nil || o.passthrough == nil {
		return n, err
	}
	if _, err := o.passthrough.Write(p); err != nil {
		return n, err
	}
	return n, nil
}
