// Package supervisor installs the process-level last-resort fault handling.
//
// Two failure classes reach it:
//   - an uncaught exception: a panic escaping a goroutine whose top frame
//     defers Recover. The process exits with status 1 immediately; the
//     listener is left alone.
//   - an unhandled rejection: an error returned by a task started with Go
//     (or passed to Reject) that nothing else handled. Wait stops the
//     listener from accepting new connections, then exits with status 1.
//
// Startup failures (configuration, database connect) go through Fatal.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"appserver/pkg/serrors"
)

const defaultShutdownTimeout = 10 * time.Second

// Listener is the accept loop the supervisor drains on an unhandled rejection.
// *fiber.App satisfies it.
type Listener interface {
	ShutdownWithContext(ctx context.Context) error
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExit replaces os.Exit.
func WithExit(fn func(code int)) Option {
	return func(s *Supervisor) { s.exit = fn }
}

// WithLogger sets the logger fault reports are written to.
func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) { s.log = l }
}

// WithShutdownTimeout bounds how long the listener may take to stop.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

type rejection struct {
	task string
	err  error
}

// Supervisor is created once per process, before any other goroutine starts.
type Supervisor struct {
	log             *zap.Logger
	exit            func(int)
	shutdownTimeout time.Duration

	mu       sync.Mutex
	listener Listener

	// Holds at most the first rejection; later ones are dropped.
	rejections chan rejection
}

// New returns a Supervisor that exits through os.Exit unless WithExit is given.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		log:             zap.NewNop(),
		exit:            os.Exit,
		shutdownTimeout: defaultShutdownTimeout,
		rejections:      make(chan rejection, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetListener registers the listener to drain on an unhandled rejection or shutdown signal.
func (s *Supervisor) SetListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Recover handles a panic escaping the calling goroutine. It must be deferred
// directly: defer sup.Recover().
func (s *Supervisor) Recover() {
	if p := recover(); p != nil {
		s.uncaught(p)
	}
}

func (s *Supervisor) uncaught(p any) {
	name, message := describe(p)
	s.log.Error("uncaught exception",
		zap.String("kind", serrors.ErrUncaught.Error()),
		zap.String("name", name),
		zap.String("message", message),
		zap.Stack("stack"),
	)
	s.log.Error("UNHANDLED EXCEPTION! Shutting down...")
	_ = s.log.Sync()
	s.exit(1)
}

// Go runs fn in a supervised goroutine. A panic in fn is an uncaught
// exception; a non-nil error is an unhandled rejection.
func (s *Supervisor) Go(task string, fn func() error) {
	go func() {
		defer s.Recover()
		if err := fn(); err != nil {
			s.reject(task, err)
		}
	}()
}

// Reject reports an asynchronous failure nobody else will handle.
func (s *Supervisor) Reject(err error) {
	if err == nil {
		return
	}
	s.reject("", err)
}

func (s *Supervisor) reject(task string, err error) {
	select {
	case s.rejections <- rejection{task: task, err: err}:
	default:
		s.log.Warn("rejection dropped, shutdown already pending",
			zap.String("task", task),
			zap.Error(err),
		)
	}
}

// Wait blocks until ctx is done or the first unhandled rejection arrives.
//
// On ctx cancellation the listener is shut down and the shutdown error, if
// any, is returned. On a rejection the listener is shut down first and the
// process then exits with status 1; the returned error is only observed when
// the exit function returns.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received, closing listener")
		return s.shutdownListener()
	case r := <-s.rejections:
		name, message := describe(r.err)
		fields := []zap.Field{
			zap.String("name", name),
			zap.String("message", message),
		}
		if r.task != "" {
			fields = append(fields, zap.String("task", r.task))
		}
		s.log.Error("unhandled rejection", fields...)
		s.log.Error("UNHANDLED PROMISE REJECTION! Shutting down...")

		if err := s.shutdownListener(); err != nil {
			s.log.Warn("listener shutdown failed", zap.Error(err))
		}
		_ = s.log.Sync()
		s.exit(1)

		return serrors.Wrap(serrors.ErrUnhandledRejection, r.err, "unhandled rejection")
	}
}

// Fatal reports a startup failure and exits with status 1. The listener is not touched.
func (s *Supervisor) Fatal(msg string, err error) {
	name, message := describe(err)
	s.log.Error(msg,
		zap.String("name", name),
		zap.String("message", message),
	)
	_ = s.log.Sync()
	s.exit(1)
}

func (s *Supervisor) shutdownListener() error {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()

	if l == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	return l.ShutdownWithContext(ctx)
}

// describe returns the name and message logged for a fault.
// Errors are named by kind or dynamic type; other panic values by their type.
func describe(p any) (name, message string) {
	if err, ok := p.(error); ok {
		return serrors.Name(err), err.Error()
	}
	return fmt.Sprintf("%T", p), fmt.Sprint(p)
}
