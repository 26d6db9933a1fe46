// Package analysis runs vegetation coverage analyses: one year at a time
// over a boundary's grid, across years into a trend, and as asynchronous
// sessions that stream progress.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
)

// DefaultMaxConcurrent bounds simultaneously running sessions.
const DefaultMaxConcurrent = 4

// ErrUnknownSession is returned for session ids the service does not hold.
var ErrUnknownSession = eris.New("analysis: unknown session")

// Analyzer produces a trend for a request.
type Analyzer interface {
	Analyze(ctx context.Context, req Request, rep Reporter) (*model.TrendResult, error)
}

// Service starts analyses asynchronously and relays their progress. A
// session keeps running when its subscribers disconnect; only Cancel or
// Shutdown stop it.
type Service struct {
	analyzer  Analyzer
	channel   *progress.Channel
	sem       *semaphore.Weighted
	retention time.Duration

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
	result *model.TrendResult
	err    error
}

// NewService creates a session service. Finished sessions stay queryable
// through Wait for retention.
func NewService(analyzer Analyzer, channel *progress.Channel, maxConcurrent int, retention time.Duration) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if retention <= 0 {
		retention = progress.DefaultTerminalRetention
	}
	base, stop := context.WithCancel(context.Background())
	return &Service{
		analyzer:  analyzer,
		channel:   channel,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		retention: retention,
		base:      base,
		stop:      stop,
		sessions:  make(map[string]*session),
	}
}

// Start validates the request and launches the analysis, returning its
// session id immediately.
func (s *Service) Start(req Request) (string, error) {
	if req.Boundary == nil {
		return "", eris.Wrap(model.ErrInvalidBoundary, "analysis: boundary required")
	}

	// The stopped check and wg.Add share s.mu with Shutdown, so no session
	// is added once Shutdown has begun waiting.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.base.Err(); err != nil {
		return "", eris.Wrap(err, "analysis: service stopped")
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(s.base)
	sess := &session{cancel: cancel, done: make(chan struct{})}
	s.sessions[id] = sess

	s.wg.Add(1)
	go s.run(ctx, id, sess, req)
	return id, nil
}

// Subscribe is a convenience for subscribing to a session's progress.
func (s *Service) Subscribe(id string) *progress.Subscription {
	return s.channel.Subscribe(id)
}

// Exists reports whether the service still holds the session.
func (s *Service) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// Cancel stops a running session. It reports whether the session exists.
func (s *Service) Cancel(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.cancel()
	}
	return ok
}

// Wait blocks until the session finishes or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (*model.TrendResult, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSession, "session %s", id)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-sess.done:
		return sess.result, sess.err
	}
}

// Shutdown cancels every session and waits for them to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "analysis: shutdown")
	}
}

func (s *Service) run(ctx context.Context, id string, sess *session, req Request) {
	defer s.wg.Done()
	defer sess.cancel()
	log := zap.L().With(zap.String("session", id))
	rep := SessionReporter(s.channel, id)

	defer func() {
		if r := recover(); r != nil {
			sess.err = eris.Errorf("analysis: panic: %v", r)
			log.Error("analysis panicked", zap.Error(sess.err))
			s.fail(id, sess.err)
		}
		close(sess.done)
		time.AfterFunc(s.retention, func() { s.forget(id) })
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		sess.err = err
		s.fail(id, err)
		return
	}
	defer s.sem.Release(1)

	log.Info("analysis started")
	result, err := s.analyzer.Analyze(ctx, req, rep)
	if err != nil {
		sess.err = err
		log.Warn("analysis failed", zap.String("code", model.ErrorCode(err)), zap.Error(err))
		s.fail(id, err)
		return
	}

	sess.result = result
	log.Info("analysis completed", zap.Float64("score", result.Score))
	s.channel.Publish(id, progress.EventAnalysisCompleted, result)
}

func (s *Service) fail(id string, err error) {
	s.channel.Publish(id, progress.EventAnalysisError, map[string]any{
		"sessionId": id,
		"code":      model.ErrorCode(err),
		"message":   err.Error(),
	})
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
