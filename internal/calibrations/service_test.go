package calibrations

import (
	"context"
	"errors"
	"testing"

	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

func TestStartRunRejectsBadOptions(t *testing.T) {
	// Option validation happens before any store access.
	s := &Service{defaultMaxIter: 100, defaultRate: 0.05, defaultQuadPoints: 21}

	tests := []struct {
		name string
		req  models.StartRunRequest
	}{
		{"unknown model", models.StartRunRequest{ModelType: "5PL"}},
		{"negative dimensions", models.StartRunRequest{Dimensions: -1}},
		{"negative max iter", models.StartRunRequest{MaxIter: -3}},
		{"negative learning rate", models.StartRunRequest{LearningRate: -0.5}},
		{"one quadrature point", models.StartRunRequest{QuadraturePoints: 1}},
	}

	for _, tt := range tests {
		_, err := s.StartRun(nil, tt.req)
		if !errors.Is(err, irt.ErrInvalidConfiguration) {
			t.Errorf("%s: error = %v, want ErrInvalidConfiguration", tt.name, err)
		}
	}
}

func TestStopRunNotInFlight(t *testing.T) {
	s := &Service{cancels: make(map[int64]context.CancelFunc)}
	if err := s.StopRun(7); err == nil {
		t.Error("stopping a run that is not in flight should fail")
	}
}

func TestRunStatusMapping(t *testing.T) {
	tests := []struct {
		state irt.FitState
		want  models.RunStatus
	}{
		{irt.StateConverged, models.RunConverged},
		{irt.StateExhausted, models.RunExhausted},
		{irt.StateStopped, models.RunStopped},
	}
	for _, tt := range tests {
		if got := runStatus(tt.state); got != tt.want {
			t.Errorf("runStatus(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []models.RunStatus{models.RunConverged, models.RunExhausted, models.RunStopped, models.RunFailed}
	for _, status := range terminal {
		if !status.Terminal() {
			t.Errorf("%q should be terminal", status)
		}
	}
	for _, status := range []models.RunStatus{models.RunPending, models.RunRunning} {
		if status.Terminal() {
			t.Errorf("%q should not be terminal", status)
		}
	}
}
