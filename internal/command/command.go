// Package command implements the Command port and Pipeline type (spec
// §4.5, C6/C7): a command reads the process context's current matrix
// and object list and produces a new matrix and/or ROIs; a pipeline
// runs an ordered list of commands against one tile.
package command

import (
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/imageproc"
	"github.com/joda-analytics/imagec-engine/internal/omeinfo"
)

// Command is one pipeline step (spec §4.5): given the context, the
// current single-channel matrix, and the context's object list, it
// produces a possibly-new matrix. Commands that only append ROIs
// (filtering, distance, intersection) return the input matrix
// unchanged.
type Command interface {
	// Kind names the command's variant, used in StepError for logging
	// and as the CommandSpec.Kind string pipelinebuild dispatches on.
	Kind() string
	// Run executes the command for one tile. classID is the class a
	// newly emitted ROI should be attributed to when the command itself
	// has no more specific class (the Pipeline resolves this from
	// DefaultClassID before calling Run).
	Run(ctx *imageproc.Context, input omeinfo.Matrix, classID enums.ClassID) (omeinfo.Matrix, error)
}

// Setup carries the per-pipeline bindings a command may need beyond its
// own parameters: the default class id new ROIs are attributed to, and
// the bound channel index (spec §4.5: "pipelineSetup carries a default
// class id and a bound C-channel index").
type Setup struct {
	DefaultClassID enums.ClassID
	BoundChannel   int32
}

// Pipeline is an ordered list of commands plus its setup (spec §4.5,
// C7). Commands run left-to-right. When a command fails, JobRunner logs
// the error and the job goes on; the failure is not stored on the
// tile's result and does not change the plane's validity bit.
type Pipeline struct {
	Name  string
	Setup Setup
	Steps []Command
}

// NewPipeline constructs a Pipeline from its setup and ordered steps.
func NewPipeline(name string, setup Setup, steps []Command) *Pipeline {
	return &Pipeline{Name: name, Setup: setup, Steps: steps}
}

// StepError pairs a command's Kind with the error it returned, so
// JobRunner can log which step of which pipeline failed on which tile
// without losing prior steps' results. JobRunner only logs it; the
// other pipelines on the same tile still run.
type StepError struct {
	PipelineName string
	StepIndex    int
	Kind         string
	Err          error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline %q step %d (%s): %v", e.PipelineName, e.StepIndex, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes every step against ctx in order, feeding each step's
// output matrix into the next. It stops at the first failing step and
// returns a *StepError identifying it; ctx.Objects already contains
// whatever ROIs earlier steps appended; a failure does not roll back
// prior ROI appends.
func (p *Pipeline) Run(ctx *imageproc.Context, input omeinfo.Matrix) (omeinfo.Matrix, error) {
	current := input
	for i, step := range p.Steps {
		out, err := step.Run(ctx, current, p.Setup.DefaultClassID)
		if err != nil {
			return current, &StepError{PipelineName: p.Name, StepIndex: i, Kind: step.Kind(), Err: err}
		}
		current = out
	}
	return current, nil
}
