package motionplan

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	goutils "go.viam.com/utils"

	"go.viam.com/armpathfinder/kinematics"
	"go.viam.com/armpathfinder/logging"
)

// Names of the supported finders.
const (
	FinderThetaStar = "theta_star"
	FinderAStar     = "a_star"
)

// FinderByName returns the finder registered under name. An empty name selects Theta*.
func FinderByName(name string) (Finder, error) {
	switch name {
	case "", FinderThetaStar:
		return ThetaStar, nil
	case FinderAStar:
		return AStar, nil
	default:
		return nil, NewUnknownFinderError(name)
	}
}

// Options configure a Planner.
type Options struct {
	// Finder is the name of the search to run, FinderThetaStar by default.
	Finder string
	// Clock is used for timing and budgets. Defaults to the wall clock.
	Clock clock.Clock
}

// PlanResult is the outcome of one planning request. When Found is false Path is empty.
type PlanResult struct {
	Found   bool
	Path    []kinematics.Pose
	Elapsed time.Duration
}

// Planner turns pose requests into waypoint paths over a precomputed grid. The grid is built once
// and only read afterwards, so Plan may be called concurrently.
type Planner struct {
	arm    kinematics.ArmConfig
	space  StateSpace
	grid   *Grid
	finder Finder
	clock  clock.Clock
	logger logging.Logger
}

// NewPlanner validates the geometry and builds the grid.
func NewPlanner(arm kinematics.ArmConfig, space StateSpace, opts Options, logger logging.Logger) (*Planner, error) {
	if err := arm.Validate("arm"); err != nil {
		return nil, err
	}
	if err := space.Validate("state_space"); err != nil {
		return nil, err
	}
	finder, err := FinderByName(opts.Finder)
	if err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	began := clk.Now()
	grid := BuildGrid(&arm, space)
	logger.Infow("built configuration space grid",
		"width", grid.Width(),
		"height", grid.Height(),
		"passable", grid.PassableRatio(),
		"elapsed", clk.Since(began),
	)

	return &Planner{
		arm:    arm,
		space:  space,
		grid:   grid,
		finder: finder,
		clock:  clk,
		logger: logger,
	}, nil
}

// Grid returns the planner's grid.
func (p *Planner) Grid() *Grid {
	return p.grid
}

// Space returns the state space the grid was built over.
func (p *Planner) Space() StateSpace {
	return p.space
}

// Arm returns the arm geometry the grid was built from.
func (p *Planner) Arm() kinematics.ArmConfig {
	return p.arm
}

// Plan finds a path from start to goal. Endpoints that fall on impassable cells are first moved
// to the nearest passable point. The returned path always begins with start and ends with goal
// exactly as given, with the grid waypoints in between.
func (p *Planner) Plan(start, goal kinematics.Pose) PlanResult {
	began := p.clock.Now()

	startState, ok := p.snap(p.space.PoseToState(start))
	if !ok {
		p.logger.Debugw("no passable state near start", "start", start)
		return PlanResult{Elapsed: p.clock.Since(began)}
	}
	goalState, ok := p.snap(p.space.PoseToState(goal))
	if !ok {
		p.logger.Debugw("no passable state near goal", "goal", goal)
		return PlanResult{Elapsed: p.clock.Since(began)}
	}

	coords, ok := p.finder(p.grid, startState, goalState)
	elapsed := p.clock.Since(began)
	if !ok {
		p.logger.Debugw("no path", "start", start, "goal", goal, "elapsed", elapsed)
		return PlanResult{Elapsed: elapsed}
	}

	path := lo.Map(coords, func(c Coord, _ int) kinematics.Pose {
		return p.space.StateToPose(c)
	})
	if len(path) < 2 {
		path = []kinematics.Pose{start, goal}
	} else {
		path[0] = start
		path[len(path)-1] = goal
	}

	p.logger.Debugw("path found", "start", start, "goal", goal, "waypoints", len(path), "elapsed", elapsed)
	return PlanResult{Found: true, Path: path, Elapsed: elapsed}
}

func (p *Planner) snap(state Coord) (Coord, bool) {
	if p.grid.CanPointPass(state) {
		return state, true
	}
	nearest, ok := NearestPassable(p.grid, state)
	if ok {
		p.logger.Debugw("moved endpoint to nearest passable state", "from", state, "to", nearest)
	}
	return nearest, ok
}

// PlanWithBudget runs Plan but gives up once budget elapses or ctx is done. The search itself
// cannot be interrupted, so an abandoned search finishes in the background and its result is
// discarded. A budget of zero or less means no limit besides ctx.
func (p *Planner) PlanWithBudget(ctx context.Context, start, goal kinematics.Pose, budget time.Duration) (PlanResult, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = p.clock.WithTimeout(ctx, budget)
		defer cancel()
	}

	began := p.clock.Now()
	resultCh := make(chan PlanResult, 1)
	goutils.PanicCapturingGo(func() {
		resultCh <- p.Plan(start, goal)
	})

	select {
	case result := <-resultCh:
		return result, nil
	case <-ctx.Done():
		elapsed := p.clock.Since(began)
		p.logger.Warnw("abandoned plan", "start", start, "goal", goal, "elapsed", elapsed, "error", ctx.Err())
		return PlanResult{Elapsed: elapsed}, errors.Wrapf(ErrPlanningBudgetExceeded, "after %v", elapsed)
	}
}
