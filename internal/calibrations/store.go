package calibrations

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Response Sets ───────────────────────────────────────

func (s *Store) CreateResponseSet(name string, createdBy *int64, matrix irt.ResponseMatrix) (*models.ResponseSet, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin create set: %w", err)
	}
	defer tx.Rollback()

	var set models.ResponseSet
	err = tx.QueryRow(
		`INSERT INTO response_sets (name, respondent_count, item_count, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, name, respondent_count, item_count, created_by, created_at`,
		name, len(matrix), len(matrix[0]), createdBy,
	).Scan(&set.ID, &set.Name, &set.RespondentCount, &set.ItemCount, &set.CreatedBy, &set.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create response set: %w", err)
	}

	for i, row := range matrix {
		if _, err := tx.Exec(
			`INSERT INTO response_rows (set_id, row_index, responses) VALUES ($1, $2, $3)`,
			set.ID, i, pq.Array(rowToArray(row)),
		); err != nil {
			return nil, fmt.Errorf("insert response row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create set: %w", err)
	}
	return &set, nil
}

func (s *Store) GetResponseSet(id int64) (*models.ResponseSet, error) {
	var set models.ResponseSet
	err := s.db.QueryRow(
		`SELECT id, name, respondent_count, item_count, created_by, created_at
		 FROM response_sets WHERE id = $1`,
		id,
	).Scan(&set.ID, &set.Name, &set.RespondentCount, &set.ItemCount, &set.CreatedBy, &set.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get response set: %w", err)
	}
	return &set, nil
}

func (s *Store) GetMatrix(setID int64) (irt.ResponseMatrix, error) {
	rows, err := s.db.Query(
		`SELECT responses FROM response_rows WHERE set_id = $1 ORDER BY row_index`,
		setID,
	)
	if err != nil {
		return nil, fmt.Errorf("load matrix: %w", err)
	}
	defer rows.Close()

	var matrix irt.ResponseMatrix
	for rows.Next() {
		var values []int64
		if err := rows.Scan(pq.Array(&values)); err != nil {
			return nil, fmt.Errorf("scan matrix row: %w", err)
		}
		matrix = append(matrix, arrayToRow(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matrix rows: %w", err)
	}
	return matrix, nil
}

// ── Calibration Runs ────────────────────────────────────

func (s *Store) CreateRun(req models.StartRunRequest, createdBy *int64) (*models.CalibrationRun, error) {
	var run models.CalibrationRun
	err := s.db.QueryRow(
		`INSERT INTO calibration_runs (set_id, model_type, dimensions, max_iter, learning_rate, quadrature_points, status, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, set_id, model_type, dimensions, max_iter, learning_rate, quadrature_points,
		           status, iterations, max_change, error_message, created_by, created_at, completed_at`,
		req.ResponseSetID, req.ModelType, req.Dimensions, req.MaxIter,
		req.LearningRate, req.QuadraturePoints, models.RunPending, createdBy,
	).Scan(&run.ID, &run.SetID, &run.ModelType, &run.Dimensions, &run.MaxIter, &run.LearningRate,
		&run.QuadraturePoints, &run.Status, &run.Iterations, &run.MaxChange, &run.ErrorMessage,
		&run.CreatedBy, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return &run, nil
}

func (s *Store) MarkRunRunning(runID int64) error {
	_, err := s.db.Exec(
		`UPDATE calibration_runs SET status = $1 WHERE id = $2`,
		models.RunRunning, runID,
	)
	return err
}

// CheckpointRun records mid-fit progress: the iteration count, the cycle's
// max parameter change, and the current item parameters.
func (s *Store) CheckpointRun(runID int64, iterations int, maxChange float64, items []irt.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE calibration_runs SET iterations = $1, max_change = $2 WHERE id = $3`,
		iterations, maxChange, runID,
	); err != nil {
		return fmt.Errorf("checkpoint run: %w", err)
	}
	if err := upsertItems(tx, runID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

func (s *Store) CompleteRun(runID int64, status models.RunStatus, iterations int, maxChange float64, items []irt.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE calibration_runs
		 SET status = $1, iterations = $2, max_change = $3, completed_at = NOW()
		 WHERE id = $4`,
		status, iterations, maxChange, runID,
	); err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if err := upsertItems(tx, runID, items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete: %w", err)
	}
	return nil
}

func (s *Store) FailRun(runID int64, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE calibration_runs SET status = $1, error_message = $2, completed_at = NOW() WHERE id = $3`,
		models.RunFailed, errMsg, runID,
	)
	return err
}

func upsertItems(tx *sql.Tx, runID int64, items []irt.Item) error {
	for j, item := range items {
		if _, err := tx.Exec(
			`INSERT INTO item_parameters (run_id, item_index, discrimination, intercept, lower_asymptote, upper_asymptote, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW())
			 ON CONFLICT (run_id, item_index) DO UPDATE
			 SET discrimination = EXCLUDED.discrimination, intercept = EXCLUDED.intercept,
			     lower_asymptote = EXCLUDED.lower_asymptote, upper_asymptote = EXCLUDED.upper_asymptote,
			     updated_at = NOW()`,
			runID, j, pq.Array(item.A), item.D, item.C, item.Gamma,
		); err != nil {
			return fmt.Errorf("upsert item %d: %w", j, err)
		}
	}
	return nil
}

func (s *Store) GetRun(runID int64) (*models.CalibrationRun, error) {
	var run models.CalibrationRun
	err := s.db.QueryRow(
		`SELECT id, set_id, model_type, dimensions, max_iter, learning_rate, quadrature_points,
		        status, iterations, max_change, error_message, created_by, created_at, completed_at
		 FROM calibration_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.SetID, &run.ModelType, &run.Dimensions, &run.MaxIter, &run.LearningRate,
		&run.QuadraturePoints, &run.Status, &run.Iterations, &run.MaxChange, &run.ErrorMessage,
		&run.CreatedBy, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (s *Store) ListRuns(status *models.RunStatus, limit, offset int) ([]models.CalibrationRun, error) {
	selectCols := `id, set_id, model_type, dimensions, max_iter, learning_rate, quadrature_points,
	        status, iterations, max_change, error_message, created_by, created_at, completed_at`

	var rows *sql.Rows
	var err error
	if status != nil {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM calibration_runs WHERE status = $1
			 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, selectCols),
			*status, limit, offset,
		)
	} else {
		rows, err = s.db.Query(
			fmt.Sprintf(`SELECT %s FROM calibration_runs
			 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, selectCols),
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CalibrationRun
	for rows.Next() {
		var run models.CalibrationRun
		if err := rows.Scan(&run.ID, &run.SetID, &run.ModelType, &run.Dimensions, &run.MaxIter,
			&run.LearningRate, &run.QuadraturePoints, &run.Status, &run.Iterations, &run.MaxChange,
			&run.ErrorMessage, &run.CreatedBy, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) GetItems(runID int64) ([]irt.Item, error) {
	rows, err := s.db.Query(
		`SELECT discrimination, intercept, lower_asymptote, upper_asymptote
		 FROM item_parameters WHERE run_id = $1 ORDER BY item_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []irt.Item
	for rows.Next() {
		var item irt.Item
		if err := rows.Scan(pq.Array(&item.A), &item.D, &item.C, &item.Gamma); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
