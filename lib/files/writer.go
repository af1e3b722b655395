package files

import (
	"errors"
	"fmt"
	"sync"

	"example.com/peerwire/lib/logger"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

var l_writer = logger.Named("writer")

var ErrWriterClosed = errors.New("writer closed")

// Job is a verified piece waiting to be written at Offset. The writer owns
// Data once the job is added.
type Job struct {
	Data   []byte
	Offset int64
}

// Writer persists jobs on its own goroutine so callers never wait on disk.
type Writer struct {
	file afero.File
	size int64

	mu    sync.Mutex
	cond  *sync.Cond
	queue []Job
	stop  bool

	done      chan struct{}
	closeOnce sync.Once
	errs      error
	written   int64
}

func NewWriter(file afero.File, size int64) *Writer {
	w := &Writer{
		file: file,
		size: size,
		done: make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Add queues job and returns immediately. Jobs added after Close are dropped.
func (w *Writer) Add(job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop {
		l_writer.Sugar().Warnw("job after close dropped", "offset", job.Offset, "len", len(job.Data))
		return
	}
	w.queue = append(w.queue, job)
	w.cond.Signal()
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.stop {
			w.cond.Wait()
		}
		jobs, stop := w.queue, w.stop
		w.queue = nil
		w.mu.Unlock()

		for _, job := range jobs {
			w.write(job)
		}
		if stop {
			return
		}
	}
}

func (w *Writer) write(job Job) {
	end := job.Offset + int64(len(job.Data))
	if job.Offset < 0 || end > w.size {
		w.errs = multierr.Append(w.errs, fmt.Errorf("job [%d, %d) outside file of %d bytes", job.Offset, end, w.size))
		return
	}
	if _, err := w.file.WriteAt(job.Data, job.Offset); err != nil {
		w.errs = multierr.Append(w.errs, fmt.Errorf("write at %d: %w", job.Offset, err))
		return
	}
	w.written += int64(len(job.Data))
}

// Close writes everything still queued, stops the worker and closes the file.
func (w *Writer) Close() error {
	err := ErrWriterClosed
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.stop = true
		w.cond.Signal()
		w.mu.Unlock()

		<-w.done
		err = multierr.Append(w.errs, w.file.Close())
		l_writer.Sugar().Debugw("writer closed", "written", w.written)
	})
	return err
}
