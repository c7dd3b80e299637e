package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plantops/finding-service/internal/domain"
)

// Directory resolves employees and their organizational approval levels.
type Directory interface {
	Create(ctx context.Context, employee *domain.Employee) error
	Update(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	GetByEmail(ctx context.Context, email string) (*domain.Employee, error)
	ResolveApprovalLevel(ctx context.Context, employeeID string) (int, error)
	// ResolveEligibleAssignees returns active employees at or above minLevel.
	// With escalationOnly set, only exact level-3 employees qualify.
	ResolveEligibleAssignees(ctx context.Context, minLevel int, escalationOnly bool) ([]domain.Employee, error)
}

type directoryRepository struct {
	pool *pgxpool.Pool
}

// NewDirectoryRepository instantiates the repository.
func NewDirectoryRepository(pool *pgxpool.Pool) Directory {
	return &directoryRepository{pool: pool}
}

const employeeColumns = `id, name, email, password_hash, approval_level, department, active_flag, created_at, updated_at`

func (r *directoryRepository) Create(ctx context.Context, employee *domain.Employee) error {
	const query = `
        INSERT INTO employees (name, email, password_hash, approval_level, department, active_flag)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		employee.Name,
		employee.Email,
		employee.PasswordHash,
		employee.ApprovalLevel,
		employee.Department,
		employee.Active,
	).Scan(&employee.ID, &employee.CreatedAt, &employee.UpdatedAt)
}

func (r *directoryRepository) Update(ctx context.Context, employee *domain.Employee) error {
	const query = `
        UPDATE employees
        SET name=$1, email=$2, password_hash=$3, approval_level=$4, department=$5, active_flag=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		employee.Name,
		employee.Email,
		employee.PasswordHash,
		employee.ApprovalLevel,
		employee.Department,
		employee.Active,
		employee.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *directoryRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id=$1`
	return scanEmployee(r.pool.QueryRow(ctx, query, id))
}

func (r *directoryRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email=$1`
	return scanEmployee(r.pool.QueryRow(ctx, query, email))
}

func (r *directoryRepository) ResolveApprovalLevel(ctx context.Context, employeeID string) (int, error) {
	var level int
	err := r.pool.QueryRow(ctx,
		`SELECT approval_level FROM employees WHERE id=$1 AND active_flag`, employeeID,
	).Scan(&level)
	return level, err
}

func (r *directoryRepository) ResolveEligibleAssignees(ctx context.Context, minLevel int, escalationOnly bool) ([]domain.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE active_flag`
	args := []any{}
	if escalationOnly {
		args = append(args, domain.LevelSenior)
		query += fmt.Sprintf(" AND approval_level=$%d", len(args))
	} else if minLevel > 0 {
		args = append(args, minLevel)
		query += fmt.Sprintf(" AND approval_level>=$%d", len(args))
	}
	query += " ORDER BY approval_level ASC, name ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *employee)
	}
	return result, rows.Err()
}

func scanEmployee(row rowScanner) (*domain.Employee, error) {
	var employee domain.Employee
	if err := row.Scan(
		&employee.ID,
		&employee.Name,
		&employee.Email,
		&employee.PasswordHash,
		&employee.ApprovalLevel,
		&employee.Department,
		&employee.Active,
		&employee.CreatedAt,
		&employee.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &employee, nil
}
