package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/keagan/stillwater/internal/overlay"
	"github.com/keagan/stillwater/internal/timeline"
)

func validRequest() Request {
	return Request{
		Background: "nature.mp4",
		Music:      "music.mp3",
		Segments: []overlay.Segment{
			{Text: "one", Index: 0},
			{Text: "two", Index: 1},
		},
		Total:      time.Minute,
		Canvas:     timeline.Canvas{Width: 1920, Height: 1080},
		OutputPath: "out.mp4",
	}
}

func TestValidateRequestAccepts(t *testing.T) {
	if err := validateRequest(validRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	// Indices need not be contiguous, only strictly increasing.
	gapped := validRequest()
	gapped.Segments[0].Index = 0
	gapped.Segments[1].Index = 5
	if err := validateRequest(gapped); err != nil {
		t.Fatalf("request with gapped indices rejected: %v", err)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing background", func(r *Request) { r.Background = "" }},
		{"missing output", func(r *Request) { r.OutputPath = "" }},
		{"zero total", func(r *Request) { r.Total = 0 }},
		{"negative total", func(r *Request) { r.Total = -time.Second }},
		{"no segments", func(r *Request) { r.Segments = nil }},
		{"zero canvas", func(r *Request) { r.Canvas = timeline.Canvas{} }},
		{"duplicate indices", func(r *Request) { r.Segments[1].Index = 0 }},
		{"decreasing indices", func(r *Request) { r.Segments[0].Index = 7 }},
		{"negative index", func(r *Request) { r.Segments[0].Index = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			if err := validateRequest(req); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestStageErrorKinds(t *testing.T) {
	cause := fmt.Errorf("ffmpeg exploded")
	err := stageErr("compose", ErrComposition, cause)

	if !errors.Is(err, ErrComposition) {
		t.Error("stage error must match its kind with errors.Is")
	}
	if errors.Is(err, ErrInput) || errors.Is(err, ErrIntegrity) {
		t.Error("stage error must not match other kinds")
	}
	if !errors.Is(err, cause) {
		t.Error("stage error must preserve the underlying cause")
	}

	var stage *StageError
	if !errors.As(err, &stage) {
		t.Fatal("expected a *StageError")
	}
	if stage.Stage != "compose" {
		t.Errorf("expected stage %q, got %q", "compose", stage.Stage)
	}
}
