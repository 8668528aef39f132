// Package armpathfinder answers arm path requests arriving over the messenger.
//
// A Calc message carries a start and goal pose. The service plans on a single worker
// goroutine and replies with a Path message. Requests arriving while a plan is running
// replace each other, so only the newest one is planned next. A GetInfo message is
// answered with an Info message describing the configuration space.
package armpathfinder

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.viam.com/armpathfinder/kinematics"
	"go.viam.com/armpathfinder/logging"
	"go.viam.com/armpathfinder/messenger"
	"go.viam.com/armpathfinder/motionplan"
)

// Transport is the part of a messenger client the service needs.
type Transport interface {
	Listen(name string, handler messenger.Handler) error
	Send(name string, data []byte) error
}

// Config configures a Service.
type Config struct {
	MessagePrefix string
	// PlanningBudget bounds each plan. Zero means unbounded.
	PlanningBudget time.Duration
	// StatsInterval is how often request counters are logged. Zero disables it.
	StatsInterval time.Duration
	Clock         clock.Clock
}

// Stats counts what the service has done since it started.
type Stats struct {
	Requests   int64
	Invalid    int64
	Superseded int64
	Found      int64
	NotFound   int64
	Failed     int64
}

// Service plans paths for requests received over a Transport.
type Service struct {
	planner   *motionplan.Planner
	transport Transport
	names     Names
	budget    time.Duration
	interval  time.Duration
	clock     clock.Clock
	logger    logging.Logger
	info      []byte

	mu      sync.Mutex
	pending *CalcRequest
	wake    chan struct{}

	requests   atomic.Int64
	invalid    atomic.Int64
	superseded atomic.Int64
	found      atomic.Int64
	notFound   atomic.Int64
	failed     atomic.Int64
}

// NewService returns a service answering with planner.
func NewService(planner *motionplan.Planner, transport Transport, cfg Config, logger logging.Logger) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Service{
		planner:   planner,
		transport: transport,
		names:     NewNames(cfg.MessagePrefix),
		budget:    cfg.PlanningBudget,
		interval:  cfg.StatsInterval,
		clock:     cfg.Clock,
		logger:    logger,
		info:      EncodeInfo(NewInfo(planner)),
		wake:      make(chan struct{}, 1),
	}
}

// Names returns the message names the service uses.
func (s *Service) Names() Names {
	return s.names
}

// Stats returns a snapshot of the request counters.
func (s *Service) Stats() Stats {
	return Stats{
		Requests:   s.requests.Load(),
		Invalid:    s.invalid.Load(),
		Superseded: s.superseded.Load(),
		Found:      s.found.Load(),
		NotFound:   s.notFound.Load(),
		Failed:     s.failed.Load(),
	}
}

// Run registers the service's listeners and plans until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.transport.Listen(s.names.Calc, s.handleCalc); err != nil {
		return errors.Wrapf(err, "listening to %q", s.names.Calc)
	}
	if err := s.transport.Listen(s.names.GetInfo, s.handleGetInfo); err != nil {
		return errors.Wrapf(err, "listening to %q", s.names.GetInfo)
	}
	s.logger.Infow("arm pathfinder running", "calc", s.names.Calc, "budget", s.budget)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.planLoop(gctx)
	})
	if s.interval > 0 {
		g.Go(func() error {
			return s.statsLoop(gctx)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Service) handleCalc(msg messenger.Message) {
	s.requests.Inc()
	req, err := DecodeCalc(msg.Data)
	if err != nil {
		s.invalid.Inc()
		s.logger.Warnw("dropping invalid calc request", "size", len(msg.Data), "error", err)
		return
	}
	s.submit(req)
}

// submit replaces any request that has not started planning yet.
func (s *Service) submit(req CalcRequest) {
	s.mu.Lock()
	if s.pending != nil {
		s.superseded.Inc()
		s.logger.Debugw("request superseded", "start", s.pending.Start, "goal", s.pending.Goal)
	}
	s.pending = &req
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) take() (CalcRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return CalcRequest{}, false
	}
	req := *s.pending
	s.pending = nil
	return req, true
}

func (s *Service) handleGetInfo(messenger.Message) {
	if err := s.transport.Send(s.names.Info, s.info); err != nil {
		s.logger.Warnw("failed to send info", "error", err)
	}
}

func (s *Service) planLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		}
		req, ok := s.take()
		if !ok {
			continue
		}
		if err := s.plan(ctx, req); err != nil {
			return err
		}
	}
}

// plan answers one request. It only returns an error when ctx is done.
func (s *Service) plan(ctx context.Context, req CalcRequest) error {
	result, err := s.planner.PlanWithBudget(ctx, req.Start, req.Goal, s.budget)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.failed.Inc()
		s.logger.Warnw("planning failed", "start", req.Start, "goal", req.Goal, "error", err)
	}

	if result.Found {
		s.found.Inc()
	} else {
		s.notFound.Inc()
	}
	s.reply(result.Found, result.Path)
	return nil
}

func (s *Service) reply(found bool, path []kinematics.Pose) {
	if err := s.transport.Send(s.names.Path, EncodePath(found, path)); err != nil {
		s.logger.Warnw("failed to send path", "waypoints", len(path), "error", err)
	}
}

func (s *Service) statsLoop(ctx context.Context) error {
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		stats := s.Stats()
		s.logger.Infow("pathfinder stats",
			"requests", stats.Requests,
			"invalid", stats.Invalid,
			"superseded", stats.Superseded,
			"found", stats.Found,
			"not_found", stats.NotFound,
			"failed", stats.Failed,
		)
	}
}
