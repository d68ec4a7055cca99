package access

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	auditDomain "github.com/marrakech-reviews/service-community/internal/domain/audit"
)

const (
	defaultAuditQueueSize = 256
	auditWriteTimeout     = 5 * time.Second
)

// Origin describes where a request came from.
type Origin struct {
	IPAddress string
	UserAgent string
}

// Recorder writes audit entries in the background. Entries that cannot be
// queued or written are logged and dropped.
type Recorder struct {
	repo   auditDomain.Repository
	logger *zap.Logger
	queue  chan auditDomain.Entry
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder with one worker. queueSize <= 0 uses the default.
func NewRecorder(repo auditDomain.Repository, logger *zap.Logger, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultAuditQueueSize
	}
	r := &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan auditDomain.Entry, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// RecordAudit enqueues an entry for p. It never blocks.
func (r *Recorder) RecordAudit(p Principal, action, resourceKind, resourceID string, details map[string]any, origin Origin) {
	entry := auditDomain.NewEntry(p.AccountID, string(p.Role), action, resourceKind, resourceID, details)
	entry.IPAddress = origin.IPAddress
	entry.UserAgent = origin.UserAgent

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.Warn("audit recorder closed, dropping entry", zap.String("action", action))
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			zap.String("action", action),
			zap.String("actor_id", p.AccountID.String()),
		)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		r.write(entry)
	}
}

func (r *Recorder) write(entry auditDomain.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := r.repo.Save(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry",
			zap.String("action", entry.Action),
			zap.String("resource_kind", entry.ResourceKind),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err),
		)
	}
}

// Close stops accepting entries and waits for queued ones to be written or
// for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
