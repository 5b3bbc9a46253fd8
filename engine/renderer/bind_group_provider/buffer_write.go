package bind_group_provider

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// BufferWriter submits bytes into a GPU buffer.
type BufferWriter interface {
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
}

// queueWriter adapts a wgpu.Queue to BufferWriter.
type queueWriter struct {
	queue *wgpu.Queue
}

// NewQueueWriter wraps a device queue as a BufferWriter.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - BufferWriter: the writer
func NewQueueWriter(queue *wgpu.Queue) BufferWriter {
	return &queueWriter{queue: queue}
}

func (q *queueWriter) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	return q.queue.WriteBuffer(buf, offset, data)
}

// CountingWriter is a BufferWriter with no device behind it. It tallies the writes and
// bytes submitted per buffer and never touches the buffer handles.
type CountingWriter struct {
	mu      sync.Mutex
	writes  int
	bytes   int
	buffers map[*wgpu.Buffer]int
}

// NewCountingWriter creates an empty CountingWriter.
func NewCountingWriter() *CountingWriter {
	return &CountingWriter{buffers: make(map[*wgpu.Buffer]int)}
}

func (c *CountingWriter) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	c.bytes += len(data)
	c.buffers[buf] += len(data)
	return nil
}

// Writes returns the number of writes submitted.
func (c *CountingWriter) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Bytes returns the total number of bytes submitted.
func (c *CountingWriter) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// BufferBytes returns the bytes submitted into one buffer.
func (c *CountingWriter) BufferBytes(buf *wgpu.Buffer) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers[buf]
}

// WriteBuffers submits staged writes in order. Writes whose provider has no buffer at the
// target binding are skipped.
//
// Parameters:
//   - w: the writer the data is submitted through
//   - writes: the staged writes
//
// Returns:
//   - int: the number of writes submitted
//   - error: the first write error; later writes are not submitted
func WriteBuffers(w BufferWriter, writes []BufferWrite) (int, error) {
	submitted := 0
	for _, bw := range writes {
		if bw.Provider == nil || len(bw.Data) == 0 {
			continue
		}
		buf := bw.Provider.Buffer(bw.Binding)
		if buf == nil {
			continue
		}
		if err := w.WriteBuffer(buf, bw.Offset, bw.Data); err != nil {
			return submitted, errors.Wrapf(err, "write %s binding %d", bw.Provider.Label(), bw.Binding)
		}
		submitted++
	}
	return submitted, nil
}
