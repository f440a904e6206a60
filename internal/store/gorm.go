package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillpick/internal/config"
	skillpickErrors "skillpick/internal/errors"
	"skillpick/internal/types"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore persists to a relational database through GORM
type GormStore struct {
	db     *gorm.DB
	logger *skillpickErrors.Logger
}

var _ Store = (*GormStore)(nil)

// Open returns the store selected by cfg.Driver
func Open(cfg config.DatabaseConfig, logger *skillpickErrors.Logger) (Store, error) {
	if cfg.Driver == "" || cfg.Driver == "memory" {
		logger.Info("Using in-memory store")
		return NewMemoryStore(), nil
	}
	return OpenGorm(cfg, logger)
}

// OpenGorm connects to the configured database and optionally migrates the schema
func OpenGorm(cfg config.DatabaseConfig, logger *skillpickErrors.Logger) (*GormStore, error) {
	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, skillpickErrors.NewConfigError(skillpickErrors.ErrCodeStorageFailed,
			"Failed to connect to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, skillpickErrors.NewConfigError(skillpickErrors.ErrCodeStorageFailed,
			"Failed to access database pool", err)
	}
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer; serializing connections keeps
		// concurrent transactions from failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &GormStore{db: db, logger: logger}
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	logger.Info("Database connected", "driver", cfg.Driver, "auto_migrate", cfg.AutoMigrate)
	return s, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), nil
	default:
		return nil, skillpickErrors.NewConfigError(skillpickErrors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported database driver %q", driver), nil)
	}
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// Migrate creates or updates the schema
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return skillpickErrors.NewIOError(skillpickErrors.ErrCodeStorageFailed, "Failed to migrate database schema", err)
	}
	return nil
}

func (s *GormStore) CreateProcess(ctx context.Context, process *types.Process) error {
	model, err := newProcessModel(process)
	if err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Create(model).Error)
}

func (s *GormStore) GetProcess(ctx context.Context, id string) (*types.Process, error) {
	var model processModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) GetProcessByToken(ctx context.Context, token string) (*types.Process, error) {
	var model processModel
	if err := s.db.WithContext(ctx).First(&model, "public_token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) CreateCandidate(ctx context.Context, candidate *types.Candidate) error {
	model, err := newCandidateModel(candidate)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var processes int64
		if err := tx.Model(&processModel{}).Where("id = ?", model.ProcessID).Count(&processes).Error; err != nil {
			return err
		}
		if processes == 0 {
			return ErrNotFound
		}

		var existing int64
		if err := tx.Model(&candidateModel{}).
			Where("process_id = ? AND email = ?", model.ProcessID, model.Email).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}
		return translate(tx.Create(model).Error)
	})
}

func (s *GormStore) GetCandidate(ctx context.Context, id string) (*types.Candidate, error) {
	var model candidateModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) FindCandidateByEmail(ctx context.Context, processID, email string) (*types.Candidate, error) {
	var model candidateModel
	if err := s.db.WithContext(ctx).
		First(&model, "process_id = ? AND email = ?", processID, types.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) DeleteCandidate(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND state = ?", id, string(types.StateRegistered)).Delete(&candidateModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}

		var current candidateModel
		if err := tx.Select("state").First(&current, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		return &StateConflictError{CandidateID: id, Expected: types.StateRegistered, Actual: types.CandidateState(current.State)}
	})
}

func (s *GormStore) ListCandidates(ctx context.Context, processID string) ([]types.Candidate, error) {
	var models []candidateModel
	if err := s.db.WithContext(ctx).
		Where("process_id = ?", processID).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]types.Candidate, 0, len(models))
	for i := range models {
		c, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// swapState performs the compare-and-swap on the candidate state inside tx
func swapState(tx *gorm.DB, candidateID string, from, to types.CandidateState, extra map[string]any) error {
	updates := map[string]any{"state": string(to)}
	for k, v := range extra {
		updates[k] = v
	}

	res := tx.Model(&candidateModel{}).
		Where("id = ? AND state = ?", candidateID, string(from)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current candidateModel
	if err := tx.Select("state").First(&current, "id = ?", candidateID).Error; err != nil {
		return translate(err)
	}
	return &StateConflictError{CandidateID: candidateID, Expected: from, Actual: types.CandidateState(current.State)}
}

func (s *GormStore) IssueTest(ctx context.Context, candidateID string, questions *types.QuestionSet) error {
	model, err := newQuestionSetModel(candidateID, questions)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := swapState(tx, candidateID, types.StateRegistered, types.StateTestIssued,
			map[string]any{"question_set_id": model.ID}); err != nil {
			return err
		}
		return translate(tx.Create(model).Error)
	})
}

func (s *GormStore) GetQuestionSet(ctx context.Context, candidateID string) (*types.QuestionSet, error) {
	var model questionSetModel
	if err := s.db.WithContext(ctx).First(&model, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) CompleteEvaluation(ctx context.Context, candidateID string, submission *types.Submission, scorecard *types.Scorecard) error {
	submissionRow, err := newSubmissionModel(candidateID, submission)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := swapState(tx, candidateID, types.StateTestIssued, types.StateSubmitted, nil); err != nil {
			return err
		}

		var candidate candidateModel
		if err := tx.Select("process_id").First(&candidate, "id = ?", candidateID).Error; err != nil {
			return translate(err)
		}
		scorecardRow, err := newScorecardModel(candidateID, candidate.ProcessID, scorecard)
		if err != nil {
			return err
		}

		if err := tx.Create(submissionRow).Error; err != nil {
			return translate(err)
		}
		if err := tx.Create(scorecardRow).Error; err != nil {
			return translate(err)
		}
		return swapState(tx, candidateID, types.StateSubmitted, types.StateEvaluated, nil)
	})
}

func (s *GormStore) GetSubmission(ctx context.Context, candidateID string) (*types.Submission, error) {
	var model submissionModel
	if err := s.db.WithContext(ctx).First(&model, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) GetScorecard(ctx context.Context, candidateID string) (*types.Scorecard, error) {
	var model scorecardModel
	if err := s.db.WithContext(ctx).First(&model, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, translate(err)
	}
	return model.toDomain()
}

func (s *GormStore) ListScorecards(ctx context.Context, processID string) (map[string]*types.Scorecard, error) {
	var models []scorecardModel
	if err := s.db.WithContext(ctx).Where("process_id = ?", processID).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make(map[string]*types.Scorecard, len(models))
	for i := range models {
		sc, err := models[i].toDomain()
		if err != nil {
			return nil, err
		}
		out[sc.CandidateID] = sc
	}
	return out, nil
}

// Close releases the connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps GORM errors onto the store sentinels
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
