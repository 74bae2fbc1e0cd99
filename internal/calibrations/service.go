package calibrations

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/lsat-prep/calibration/internal/interpret"
	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

type Service struct {
	store       *Store
	interpreter *interpret.Interpreter

	defaultMaxIter    int
	defaultRate       float64
	defaultQuadPoints int

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
}

func NewService(store *Store, interp *interpret.Interpreter) *Service {
	maxIter := irt.DefaultMaxIter
	if v := os.Getenv("CALIBRATION_MAX_ITER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxIter = n
		}
	}

	rate := irt.DefaultLearningRate
	if v := os.Getenv("CALIBRATION_LEARNING_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rate = f
		}
	}

	quadPoints := irt.DefaultQuadraturePoints
	if v := os.Getenv("CALIBRATION_QUADRATURE_POINTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 2 {
			quadPoints = n
		}
	}

	log.Printf("Service: maxIter=%d learningRate=%g quadraturePoints=%d", maxIter, rate, quadPoints)

	return &Service{
		store:             store,
		interpreter:       interp,
		defaultMaxIter:    maxIter,
		defaultRate:       rate,
		defaultQuadPoints: quadPoints,
		cancels:           make(map[int64]context.CancelFunc),
	}
}

// ── Response Sets ───────────────────────────────────────

func (s *Service) CreateResponseSet(createdBy *int64, req models.CreateResponseSetRequest) (*models.ResponseSet, error) {
	matrix, err := matrixFromRows(req.Rows)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = "untitled"
	}
	return s.store.CreateResponseSet(req.Name, createdBy, matrix)
}

func (s *Service) GetResponseSet(id int64) (*models.ResponseSet, error) {
	return s.store.GetResponseSet(id)
}

// ── Calibration Runs ────────────────────────────────────

// StartRun records a new calibration run and launches the fit in a
// background goroutine. The caller gets the pending run back immediately and
// polls GET /calibrations/{id} for progress.
func (s *Service) StartRun(createdBy *int64, req models.StartRunRequest) (*models.CalibrationRun, error) {
	if req.ModelType == "" {
		req.ModelType = string(irt.Model2PL)
	}
	if !irt.ValidModelTypes[irt.ModelType(req.ModelType)] {
		return nil, fmt.Errorf("%w: unknown model type %q", irt.ErrInvalidConfiguration, req.ModelType)
	}
	if req.Dimensions == 0 {
		req.Dimensions = 1
	}
	if req.Dimensions < 0 {
		return nil, fmt.Errorf("%w: dimensions must be positive, got %d", irt.ErrInvalidConfiguration, req.Dimensions)
	}
	if req.MaxIter == 0 {
		req.MaxIter = s.defaultMaxIter
	}
	if req.MaxIter < 0 {
		return nil, fmt.Errorf("%w: max_iter must be positive, got %d", irt.ErrInvalidConfiguration, req.MaxIter)
	}
	if req.LearningRate == 0 {
		req.LearningRate = s.defaultRate
	}
	if req.LearningRate < 0 {
		return nil, fmt.Errorf("%w: learning_rate must be positive, got %g", irt.ErrInvalidConfiguration, req.LearningRate)
	}
	if req.QuadraturePoints == 0 {
		req.QuadraturePoints = s.defaultQuadPoints
	}
	if req.QuadraturePoints < 2 {
		return nil, fmt.Errorf("%w: quadrature_points must be at least 2, got %d", irt.ErrInvalidConfiguration, req.QuadraturePoints)
	}

	// Fail fast if the response set doesn't exist.
	if _, err := s.store.GetResponseSet(req.ResponseSetID); err != nil {
		return nil, err
	}

	run, err := s.store.CreateRun(req, createdBy)
	if err != nil {
		return nil, err
	}

	go s.runFit(*run)

	return run, nil
}

func (s *Service) runFit(run models.CalibrationRun) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[run.ID] = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.cancels, run.ID)
		s.mu.Unlock()
	}()

	if err := s.store.MarkRunRunning(run.ID); err != nil {
		log.Printf("[calibrations] run %d: mark running failed: %v", run.ID, err)
	}

	matrix, err := s.store.GetMatrix(run.SetID)
	if err != nil {
		s.fail(run.ID, fmt.Errorf("load response matrix: %w", err))
		return
	}

	model, err := irt.New(run.Dimensions)
	if err != nil {
		s.fail(run.ID, err)
		return
	}

	result, err := model.Fit(ctx, matrix, irt.FitOptions{
		Model:            irt.ModelType(run.ModelType),
		MaxIter:          run.MaxIter,
		LearningRate:     run.LearningRate,
		QuadraturePoints: run.QuadraturePoints,
		OnCycle: func(iteration int, items []irt.Item, maxChange float64) bool {
			if err := s.store.CheckpointRun(run.ID, iteration, maxChange, items); err != nil {
				log.Printf("[calibrations] run %d: checkpoint at iteration %d failed: %v", run.ID, iteration, err)
			}
			return true
		},
	})
	if err != nil {
		s.fail(run.ID, err)
		return
	}

	status := runStatus(result.State)
	if err := s.store.CompleteRun(run.ID, status, result.Iterations, result.MaxChange, result.Items); err != nil {
		log.Printf("[calibrations] run %d: record completion failed: %v", run.ID, err)
		return
	}
	log.Printf("[calibrations] run %d finished: %s after %d iterations (max change %g)",
		run.ID, status, result.Iterations, result.MaxChange)
}

func (s *Service) fail(runID int64, cause error) {
	log.Printf("[calibrations] run %d failed: %v", runID, cause)
	if err := s.store.FailRun(runID, cause.Error()); err != nil {
		log.Printf("[calibrations] run %d: record failure failed: %v", runID, err)
	}
}

func runStatus(state irt.FitState) models.RunStatus {
	switch state {
	case irt.StateConverged:
		return models.RunConverged
	case irt.StateStopped:
		return models.RunStopped
	default:
		return models.RunExhausted
	}
}

// StopRun cancels an in-flight run at its next cycle boundary. The run keeps
// its best-so-far item parameters and terminates with status "stopped".
func (s *Service) StopRun(runID int64) error {
	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %d is not in flight", runID)
	}
	cancel()
	return nil
}

func (s *Service) GetRunDetail(runID int64) (*models.RunDetailResponse, error) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(runID)
	if err != nil {
		return nil, err
	}
	return &models.RunDetailResponse{Run: *run, Items: items}, nil
}

func (s *Service) ListRuns(status *models.RunStatus, limit, offset int) ([]models.CalibrationRun, error) {
	return s.store.ListRuns(status, limit, offset)
}

// ── Scoring ─────────────────────────────────────────────

// Score EAP-scores a response vector against a run's current item
// parameters. The run need not be finished: an in-flight run scores against
// its latest checkpoint.
func (s *Service) Score(runID int64, req models.ScoreRequest) (*models.ScoreResponse, error) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(runID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("run %d has no fitted item parameters yet", runID)
	}

	vector, err := vectorFromRequest(req.Responses)
	if err != nil {
		return nil, err
	}

	model, err := irt.New(run.Dimensions)
	if err != nil {
		return nil, err
	}
	grid, err := irt.NewGrid(run.QuadraturePoints)
	if err != nil {
		return nil, err
	}
	model.Grid = grid

	theta, err := model.ScoreEAP(vector, items)
	if err != nil {
		return nil, err
	}

	return &models.ScoreResponse{
		Theta:      theta,
		RunID:      run.ID,
		RunStatus:  run.Status,
		ItemCount:  len(items),
		Iterations: run.Iterations,
	}, nil
}

// ── Interpretation ──────────────────────────────────────

func (s *Service) Summarize(ctx context.Context, runID int64) (*models.SummaryResponse, error) {
	run, err := s.store.GetRun(runID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.GetItems(runID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("run %d has no fitted item parameters yet", runID)
	}

	summary, err := s.interpreter.SummarizeRun(ctx, run, items)
	if err != nil {
		return nil, fmt.Errorf("summarize run: %w", err)
	}

	return &models.SummaryResponse{
		RunID:     runID,
		Summary:   summary,
		ModelUsed: s.interpreter.ModelName(),
	}, nil
}
