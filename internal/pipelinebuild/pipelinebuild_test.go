package pipelinebuild

import (
	"encoding/json"
	"testing"

	"github.com/joda-analytics/imagec-engine/internal/command"
	"github.com/joda-analytics/imagec-engine/internal/settings"
)

func TestBuildResolvesEveryKnownCommandKind(t *testing.T) {
	spec := settings.PipelineSpec{
		Name:           "nuclei",
		DefaultClassID: 1,
		BoundChannel:   0,
		Commands: []settings.CommandSpec{
			{Kind: "rolling_ball", Params: json.RawMessage(`{"radius":30}`)},
			{Kind: "gaussian_blur", Params: json.RawMessage(`{"sigma":1.5}`)},
			{Kind: "threshold", Params: json.RawMessage(`{"method":"otsu"}`)},
			{Kind: "watershed", Params: json.RawMessage(`{"minThreshold":1}`)},
			{Kind: "filtering", Params: json.RawMessage(`{"minAreaSize":10,"maxAreaSize":5000}`)},
		},
	}

	p, err := Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(p.Steps) != len(spec.Commands) {
		t.Fatalf("expected %d steps, got %d", len(spec.Commands), len(p.Steps))
	}
	if p.Setup.DefaultClassID != 1 {
		t.Fatalf("expected default class id 1, got %d", p.Setup.DefaultClassID)
	}

	rb, ok := p.Steps[0].(command.RollingBall)
	if !ok || rb.Radius != 30 {
		t.Fatalf("expected RollingBall{Radius:30}, got %#v", p.Steps[0])
	}
	th, ok := p.Steps[2].(command.Threshold)
	if !ok || th.Method != command.ThresholdOtsu {
		t.Fatalf("expected Threshold{Method:Otsu}, got %#v", p.Steps[2])
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	spec := settings.PipelineSpec{Commands: []settings.CommandSpec{{Kind: "not_a_real_command"}}}
	if _, err := Build(spec); err == nil {
		t.Fatal("expected an error for an unknown command kind")
	}
}

func TestBuildDefaultsZProjectionModeToMax(t *testing.T) {
	spec := settings.PipelineSpec{Commands: []settings.CommandSpec{{Kind: "z_projection"}}}
	p, err := Build(spec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	zp, ok := p.Steps[0].(command.ZProjection)
	if !ok || zp.Mode != command.ZProjectMax {
		t.Fatalf("expected ZProjection{Mode:Max}, got %#v", p.Steps[0])
	}
}
