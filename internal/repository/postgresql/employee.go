package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

type employeeDirectory struct {
	db *database.DB
}

func NewEmployeeDirectory(db *database.DB) employee.Directory {
	return &employeeDirectory{db: db}
}

// GetDepartment implements employee.Directory.
func (e *employeeDirectory) GetDepartment(ctx context.Context, employeeID string) (*employee.Department, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT d.id, d.name
		FROM employees e
		LEFT JOIN departments d ON d.id = e.department_id
		WHERE e.id = $1 AND e.deleted_at IS NULL
	`

	var id, name *string
	if err := q.QueryRow(ctx, query, employeeID).Scan(&id, &name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee department: %w", err)
	}
	if id == nil {
		return nil, nil
	}

	dept := &employee.Department{ID: *id}
	if name != nil {
		dept.Name = *name
	}
	return dept, nil
}

// GetManagerID implements employee.Directory.
func (e *employeeDirectory) GetManagerID(ctx context.Context, employeeID string) (*string, error) {
	q := GetQuerier(ctx, e.db)

	var managerID *string
	err := q.QueryRow(ctx, `SELECT manager_id FROM employees WHERE id = $1 AND deleted_at IS NULL`, employeeID).Scan(&managerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee manager: %w", err)
	}
	return managerID, nil
}

// GetRole implements employee.Directory.
func (e *employeeDirectory) GetRole(ctx context.Context, employeeID string) (string, error) {
	q := GetQuerier(ctx, e.db)

	var role string
	err := q.QueryRow(ctx, `SELECT role FROM employees WHERE id = $1 AND deleted_at IS NULL`, employeeID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", employee.ErrEmployeeNotFound
		}
		return "", fmt.Errorf("failed to get employee role: %w", err)
	}
	return role, nil
}

// ListActiveEmployeeIDs implements employee.Directory.
func (e *employeeDirectory) ListActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, e.db)

	query := `
		SELECT id
		FROM employees
		WHERE employment_status = 'active' AND deleted_at IS NULL
		ORDER BY id
	`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan employee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
