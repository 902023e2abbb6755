// Package historian drains the audit queue into durable storage in batches and closes
// games that went quiet.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/flip/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued audit records. Pop returns nil, nil when nothing arrived in time.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.AuditRecord, error)
}

// Sink persists audit records.
type Sink interface {
	InsertAudit(ctx context.Context, recs []cache.AuditRecord) error
	MarkAbandoned(ctx context.Context, gameID uuid.UUID) error
}

// Options tune batching and inactivity detection.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // a game with no records for this long is marked abandoned
	PopTimeout time.Duration
}

// Service moves records from a Source to a Sink.
type Service struct {
	src  Source
	sink Sink
	opts Options
	log  logrus.FieldLogger

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []cache.AuditRecord
}

// New builds a Service. Zero options fall back to 20 records, 500ms, 10min and 3s.
func New(src Source, sink Sink, opts Options, log logrus.FieldLogger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.Inactivity <= 0 {
		opts.Inactivity = 10 * time.Minute
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	return &Service{
		src:   src,
		sink:  sink,
		opts:  opts,
		log:   log,
		batch: make([]cache.AuditRecord, 0, opts.BatchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx, time.Minute)
	}()

	s.log.Info("historian started")
	wg.Wait()
	s.Flush(context.Background())
	s.log.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		default:
			rec, err := s.src.Pop(ctx, s.opts.PopTimeout)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.WithError(err).Error("pop audit record")
				continue
			}
			if rec == nil {
				continue
			}
			s.Add(ctx, *rec)
		}
	}
}

// Add queues a record, flushing once the batch is full.
func (s *Service) Add(ctx context.Context, rec cache.AuditRecord) {
	s.lastActivity.Store(rec.GameID, time.Now())

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is put back to be retried on the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return
	}
	pending := make([]cache.AuditRecord, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.InsertAudit(ctx, pending); err != nil {
		s.log.WithError(err).WithField("records", len(pending)).Error("flush audit batch")
		return
	}
	s.batch = s.batch[:0]
	s.log.WithField("records", len(pending)).Debug("flushed audit batch")
}

func (s *Service) inactivityLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.SweepInactive(ctx, now)
		}
	}
}

// SweepInactive marks every game idle since before now-Inactivity as abandoned.
func (s *Service) SweepInactive(ctx context.Context, now time.Time) {
	s.lastActivity.Range(func(key, val interface{}) bool {
		gameID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.opts.Inactivity {
			return true
		}
		if err := s.sink.MarkAbandoned(ctx, gameID); err != nil {
			s.log.WithError(err).WithField("game", gameID).Error("mark game abandoned")
			return true
		}
		s.log.WithField("game", gameID).Info("marked game abandoned after inactivity")
		s.lastActivity.Delete(gameID)
		return true
	})
}
