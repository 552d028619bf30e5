package poster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/inventory-poster/internal/types"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterTaskDelay separates consecutive posting tasks.
	DefaultInterTaskDelay = 1200 * time.Millisecond
	// recordRetryDelay is awaited before the single retry of a failed status write.
	recordRetryDelay = time.Second
)

// PendingSource returns the vehicles a run should post.
type PendingSource interface {
	GetPendingVehicles(ctx context.Context) ([]types.Vehicle, error)
}

// Filler fills the create-listing form for one vehicle.
type Filler interface {
	PostVehicle(ctx context.Context, v types.Vehicle) (*FillReport, error)
}

// StatusRecorder durably records a task outcome on the stored vehicle.
type StatusRecorder interface {
	UpdateVehicleStatus(ctx context.Context, u types.StatusUpdate) error
}

// Outcome is the state of a posting task.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomePosted  Outcome = "posted"
	OutcomeError   Outcome = "error"
)

// PostingTask is one vehicle in a run's queue.
type PostingTask struct {
	Vehicle      types.Vehicle
	AttemptIndex int
	Outcome      Outcome
}

// TaskOutcome is the recorded result of one task.
type TaskOutcome struct {
	VehicleID    uuid.UUID   `json:"vehicle_id"`
	Title        string      `json:"title"`
	AttemptIndex int         `json:"attempt_index"`
	Outcome      Outcome     `json:"outcome"`
	Reason       string      `json:"reason,omitempty"`
	NotOnTarget  bool        `json:"not_on_target,omitempty"`
	Recorded     bool        `json:"recorded"`
	Fill         *FillReport `json:"fill,omitempty"`
}

// RunReport summarizes one posting run.
type RunReport struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Queued     int           `json:"queued"`
	Posted     int           `json:"posted"`
	Errored    int           `json:"errored"`
	Abandoned  int           `json:"abandoned"`
	Outcomes   []TaskOutcome `json:"outcomes"`
	Log        []string      `json:"log"`
}

func (r *RunReport) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// Orchestrator runs posting tasks strictly one at a time.
type Orchestrator struct {
	source   PendingSource
	filler   Filler
	recorder StatusRecorder
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	log      zerolog.Logger
}

// NewOrchestrator wires the three collaborators of a run. delay is awaited between tasks.
func NewOrchestrator(source PendingSource, filler Filler, recorder StatusRecorder, delay time.Duration, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		source:   source,
		filler:   filler,
		recorder: recorder,
		delay:    delay,
		sleep:    sleepContext,
		now:      time.Now,
		log:      log,
	}
}

// Run snapshots the pending vehicles and posts them in order.
//
// A task that has started always runs to completion and has its outcome
// recorded, even if ctx is cancelled meanwhile. Cancelling ctx only stops
// further tasks from being dequeued; those are counted as Abandoned.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{RunID: uuid.New(), StartedAt: o.now().UTC(), Outcomes: []TaskOutcome{}, Log: []string{}}
	log := o.log.With().Str("run_id", report.RunID.String()).Logger()

	vehicles, err := o.source.GetPendingVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending vehicles: %w", err)
	}

	queue := make([]PostingTask, len(vehicles))
	for i, v := range vehicles {
		queue[i] = PostingTask{Vehicle: v, AttemptIndex: i, Outcome: OutcomePending}
	}
	report.Queued = len(queue)
	report.logf("run %s: %d vehicle(s) queued", report.RunID, len(queue))
	log.Info().Int("queued", len(queue)).Msg("posting run started")

	for i := range queue {
		if i > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				report.Abandoned = len(queue) - i
				break
			}
		}
		if ctx.Err() != nil {
			report.Abandoned = len(queue) - i
			break
		}

		outcome := o.runTask(context.WithoutCancel(ctx), &queue[i], log)
		report.Outcomes = append(report.Outcomes, outcome)
		switch outcome.Outcome {
		case OutcomePosted:
			report.Posted++
			report.logf("[%d/%d] %s: posted", i+1, len(queue), outcome.Title)
		default:
			report.Errored++
			report.logf("[%d/%d] %s: error: %s", i+1, len(queue), outcome.Title, outcome.Reason)
		}
		if !outcome.Recorded {
			report.logf("[%d/%d] %s: outcome could not be recorded", i+1, len(queue), outcome.Title)
		}
	}

	if report.Abandoned > 0 {
		report.logf("run stopped: %d vehicle(s) not attempted", report.Abandoned)
	}
	report.FinishedAt = o.now().UTC()
	report.logf("run %s finished: %d posted, %d errored", report.RunID, report.Posted, report.Errored)
	log.Info().
		Int("posted", report.Posted).
		Int("errored", report.Errored).
		Int("abandoned", report.Abandoned).
		Msg("posting run finished")
	return report, nil
}

// runTask fills one form and records the outcome. ctx is never cancelled.
func (o *Orchestrator) runTask(ctx context.Context, task *PostingTask, log zerolog.Logger) TaskOutcome {
	v := task.Vehicle
	outcome := TaskOutcome{VehicleID: v.ID, Title: v.DisplayTitle(), AttemptIndex: task.AttemptIndex}
	tlog := log.With().Str("vehicle_id", v.ID.String()).Int("attempt", task.AttemptIndex).Logger()

	fill, err := o.filler.PostVehicle(ctx, v)
	outcome.Fill = fill
	update := types.StatusUpdate{VehicleID: v.ID, Status: types.StatusPosted}
	if err != nil {
		task.Outcome = OutcomeError
		outcome.Reason = err.Error()
		outcome.NotOnTarget = errors.Is(err, ErrNotOnTargetPage)
		update.Status = types.StatusError
		tlog.Warn().Err(err).Bool("not_on_target", outcome.NotOnTarget).Msg("posting task failed")
	} else {
		task.Outcome = OutcomePosted
		tlog.Info().Msg("posting task succeeded")
	}
	outcome.Outcome = task.Outcome

	if err := o.record(ctx, update, tlog); err != nil {
		tlog.Error().Err(err).Msg("failed to record task outcome")
		if outcome.Reason == "" {
			outcome.Reason = "status not recorded: " + err.Error()
		}
		return outcome
	}
	outcome.Recorded = true
	return outcome
}

// record writes the task outcome, retrying once. An unrecorded success leaves
// the vehicle pending, so the next run would post it again.
func (o *Orchestrator) record(ctx context.Context, update types.StatusUpdate, log zerolog.Logger) error {
	err := o.recorder.UpdateVehicleStatus(ctx, update)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Dur("retry_in", recordRetryDelay).Msg("recording task outcome failed; retrying")
	if err := o.sleep(ctx, recordRetryDelay); err != nil {
		return err
	}
	return o.recorder.UpdateVehicleStatus(ctx, update)
}
