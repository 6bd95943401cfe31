package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"marketplace/internal/config"
	"marketplace/internal/models"
	postgres "marketplace/internal/repository/db"
)

type Repository struct {
	db  *sql.DB
	cfg *config.PostgresConfig
}

func NewRepository(db *sql.DB, cfg *config.PostgresConfig) (*Repository, error) {
	var err error

	repo := &Repository{
		db:  db,
		cfg: cfg,
	}

	if repo.cfg == nil {
		repo.cfg, err = config.NewPostgresConfig()
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not load postgres config: %w", err)
		}
	}

	if repo.db == nil {
		repo.db, err = postgres.NewPostgresDB(repo.cfg.Conn)
		if err != nil {
			return nil, fmt.Errorf("repository.NewRepository: could not open postgres db: %w", err)
		}
	}

	if repo.cfg.AutoMigrateUp {
		err = repo.MigrateUp()
		if err != nil {
			return nil, errors.Join(err, repo.db.Close())
		}
	}

	return repo, nil
}

func (repo *Repository) MigrateUp() error {
	err := postgres.MigrateUp(repo.db)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateUp: %w", err)
	}
	return nil
}

func (repo *Repository) MigrateDown() error {
	err := postgres.MigrateDown(repo.db)
	if err != nil {
		return fmt.Errorf("repository.Repository.MigrateDown: %w", err)
	}
	return nil
}

func (repo *Repository) Close() error {
	var migErr error
	if repo.cfg.AutoMigrateDown {
		migErr = repo.MigrateDown()
	}

	err := repo.db.Close()
	return errors.Join(migErr, err)
}

//// Users

func (repo *Repository) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
	INSERT INTO users (id, display_name)
	VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET (display_name, updated_at) = (EXCLUDED.display_name, CURRENT_TIMESTAMP)
	RETURNING created_at, updated_at
	`

	row := repo.db.QueryRowContext(ctx, query, user.Id, user.DisplayName)
	err := row.Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return user, fmt.Errorf("repository.Repository.UpsertUser: %w", err)
	}
	return user, nil
}

func (repo *Repository) UserByUUID(ctx context.Context, id string) (models.User, bool, error) {
	var user models.User
	query := `
	SELECT
		id,
		display_name,
		created_at,
		updated_at
	FROM users
	WHERE id = $1
	LIMIT 1
	`
	row := repo.db.QueryRowContext(ctx, query, id)
	err := row.Scan(&user.Id, &user.DisplayName, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user, false, nil
	} else if err != nil {
		return user, false, fmt.Errorf("repository.Repository.UserByUUID: %w", err)
	}

	return user, true, nil
}

//// Service

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func wrapRollbackErr(tx *sql.Tx, err error) error {
	rollerr := tx.Rollback()
	if rollerr == nil {
		return err
	}
	return fmt.Errorf("failed to rollback transaction after previous error: %w, %w", rollerr, err)
}

// applyConditions replaces $conditions$ in query with a WHERE clause. Each
// condition holds a single $$ placeholder which is numbered after the first
// offset positional parameters.
func applyConditions(query string, conditions []string, offset int) string {
	condStr := ""
	if len(conditions) > 0 {
		for i := 0; i < len(conditions); i++ {
			conditions[i] = strings.Replace(conditions[i], "$$", "$"+strconv.Itoa(i+offset+1), -1)
		}
		condStr = "WHERE " + strings.Join(conditions, " AND ")
	}
	return strings.Replace(query, "$conditions$", condStr, -1)
}

func sqlLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

const (
	codeUniqueViolation     = "23505"
	codeInvalidTextLiteral  = "22P02"
	constraintOneAcceptance = "proposals_one_accepted_per_job"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeUniqueViolation && (len(constraint) == 0 || pqErr.Constraint == constraint)
}

// isMalformedId reports a uuid column compared against a non-uuid string.
func isMalformedId(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeInvalidTextLiteral
}
