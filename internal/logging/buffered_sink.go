package logging

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSinkClosed is returned by Enqueue after Shutdown.
var ErrSinkClosed = errors.New("audit sink closed")

// ErrSinkFull is returned when the in-memory buffer is saturated.
var ErrSinkFull = errors.New("audit sink buffer full")

// BufferedSinkConfig controls batching of audit records.
type BufferedSinkConfig struct {
	BufferSize    int           // in-memory queue size
	FlushSize     int           // flush after this many records
	FlushInterval time.Duration // flush after this duration
}

// BufferedSink batches records in memory and hands them to a BatchWriter,
// flushing by size or by interval, whichever comes first.
type BufferedSink struct {
	writer BatchWriter
	cfg    BufferedSinkConfig

	recCh  chan *LogRecord
	doneCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewBufferedSink starts the flush loop.
func NewBufferedSink(writer BatchWriter, cfg BufferedSinkConfig) *BufferedSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}

	s := &BufferedSink{
		writer: writer,
		cfg:    cfg,
		recCh:  make(chan *LogRecord, cfg.BufferSize),
		doneCh: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

// Enqueue adds a record without blocking.
func (s *BufferedSink) Enqueue(rec *LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.recCh <- rec:
		return nil
	default:
		return ErrSinkFull
	}
}

// Shutdown stops the loop and flushes what is buffered.
func (s *BufferedSink) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.doneCh)
	s.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *BufferedSink) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]*LogRecord, 0, s.cfg.FlushSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.writer.WriteBatch(ctx, batch); err != nil {
			Errorf("audit sink: dropping %d records: %v", len(batch), err)
		}
		batch = make([]*LogRecord, 0, s.cfg.FlushSize)
	}

	for {
		select {
		case rec := <-s.recCh:
			batch = append(batch, rec)
			if len(batch) >= s.cfg.FlushSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.doneCh:
			for {
				select {
				case rec := <-s.recCh:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
