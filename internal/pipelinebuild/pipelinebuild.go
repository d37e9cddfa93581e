// Package pipelinebuild builds a concrete *command.Pipeline from a
// settings.PipelineSpec, as settings.PipelineSpec's own doc comment
// promises ("The concrete command.Pipeline is built from this at job
// start"). Each CommandSpec.Kind selects a command.Command constructor;
// CommandSpec.Params is unmarshaled into that command's own parameter
// struct.
package pipelinebuild

import (
	"encoding/json"
	"fmt"

	"github.com/joda-analytics/imagec-engine/internal/command"
	"github.com/joda-analytics/imagec-engine/internal/enums"
	"github.com/joda-analytics/imagec-engine/internal/settings"
)

// Build constructs a *command.Pipeline from spec, resolving every
// CommandSpec into its command.Command implementation in order.
func Build(spec settings.PipelineSpec) (*command.Pipeline, error) {
	steps := make([]command.Command, 0, len(spec.Commands))
	for i, cs := range spec.Commands {
		step, err := buildStep(cs)
		if err != nil {
			return nil, fmt.Errorf("pipelinebuild: step %d (%s): %w", i, cs.Kind, err)
		}
		steps = append(steps, step)
	}
	setup := command.Setup{DefaultClassID: spec.DefaultClassID, BoundChannel: spec.BoundChannel}
	return command.NewPipeline(spec.Name, setup, steps), nil
}

func unmarshalParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// buildStep dispatches one CommandSpec to its command.Command
// constructor by Kind string (the same strings each command.Command's
// Kind() method returns, so a pipeline's JSON round-trips through its
// own commands' self-description).
func buildStep(cs settings.CommandSpec) (command.Command, error) {
	switch cs.Kind {
	case "z_projection":
		var p struct {
			Mode string `json:"mode"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		mode, err := zProjectionMode(p.Mode)
		if err != nil {
			return nil, err
		}
		return command.ZProjection{Mode: mode}, nil

	case "margin_crop":
		var p struct {
			MarginPixels int32 `json:"marginPixels"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.MarginCrop{MarginPixels: p.MarginPixels}, nil

	case "median_subtract":
		var p struct {
			Radius int32 `json:"radius"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.MedianSubtract{Radius: p.Radius}, nil

	case "rolling_ball":
		var p struct {
			Radius int32 `json:"radius"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.RollingBall{Radius: p.Radius}, nil

	case "gaussian_blur":
		var p struct {
			Sigma float64 `json:"sigma"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.GaussianBlur{Sigma: p.Sigma}, nil

	case "blur":
		var p struct {
			Radius int32 `json:"radius"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.Blur{Radius: p.Radius}, nil

	case "edge_detect":
		var p struct {
			Mode string `json:"mode"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		mode, err := edgeDetectMode(p.Mode)
		if err != nil {
			return nil, err
		}
		return command.EdgeDetect{Mode: mode}, nil

	case "threshold":
		var p struct {
			Method      string `json:"method"`
			ManualLevel uint16 `json:"manualLevel"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		method, err := thresholdMethod(p.Method)
		if err != nil {
			return nil, err
		}
		return command.Threshold{Method: method, ManualLevel: p.ManualLevel}, nil

	case "watershed":
		var p struct {
			MinThreshold uint16 `json:"minThreshold"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.Watershed{MinThreshold: p.MinThreshold}, nil

	case "filtering":
		var p struct {
			MinAreaSize    float64 `json:"minAreaSize"`
			MaxAreaSize    float64 `json:"maxAreaSize"`
			MinCircularity float64 `json:"minCircularity"`
			MaxCircularity float64 `json:"maxCircularity"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.Filter{
			MinAreaSize: p.MinAreaSize, MaxAreaSize: p.MaxAreaSize,
			MinCircularity: p.MinCircularity, MaxCircularity: p.MaxCircularity,
		}, nil

	case "intersection":
		var p struct {
			TargetClassID enums.ClassID `json:"targetClassId"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.Intersection{TargetClassID: p.TargetClassID}, nil

	case "distance":
		var p struct {
			TargetClassID enums.ClassID `json:"targetClassId"`
		}
		if err := unmarshalParams(cs.Params, &p); err != nil {
			return nil, err
		}
		return command.Distance{TargetClassID: p.TargetClassID}, nil

	default:
		return nil, fmt.Errorf("unknown command kind %q", cs.Kind)
	}
}

func zProjectionMode(s string) (command.ZProjectionMode, error) {
	switch s {
	case "", "max":
		return command.ZProjectMax, nil
	case "min":
		return command.ZProjectMin, nil
	case "avg":
		return command.ZProjectAvg, nil
	case "sum":
		return command.ZProjectSum, nil
	default:
		return 0, fmt.Errorf("unknown z_projection mode %q", s)
	}
}

func edgeDetectMode(s string) (command.EdgeDetectMode, error) {
	switch s {
	case "x":
		return command.EdgeDetectX, nil
	case "y":
		return command.EdgeDetectY, nil
	case "", "xy":
		return command.EdgeDetectXY, nil
	default:
		return 0, fmt.Errorf("unknown edge_detect mode %q", s)
	}
}

func thresholdMethod(s string) (command.ThresholdMethod, error) {
	switch s {
	case "manual":
		return command.ThresholdManual, nil
	case "", "otsu":
		return command.ThresholdOtsu, nil
	case "li":
		return command.ThresholdLi, nil
	case "min_error":
		return command.ThresholdMinError, nil
	case "triangle":
		return command.ThresholdTriangle, nil
	case "moments":
		return command.ThresholdMoments, nil
	default:
		return 0, fmt.Errorf("unknown threshold method %q", s)
	}
}
