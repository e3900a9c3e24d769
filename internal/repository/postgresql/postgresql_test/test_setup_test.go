package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/pkg/database"
)

// TestDatabaseSetup wraps a migrated test database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies migrations. The
// test is skipped when no database is reachable.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := database.NewPostgreSQLDB(ctx, dsn)
	if err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.TruncateAllTables(context.Background()); err != nil {
		db.Close()
		t.Fatalf("failed to truncate test database: %v", err)
	}
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables empties every table touched by the engine.
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"notifications",
		"company_holidays",
		"leave_requests",
		"early_leave_requests",
		"attendance_sessions",
		"punches",
		"department_shift_rules",
		"employee_default_shifts",
		"shift_assignments",
		"shift_template_departments",
		"shift_templates",
		"employees",
		"departments",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// SeedEmployee inserts a department and an active employee.
func (t *TestDatabaseSetup) SeedEmployee(ctx context.Context, employeeID, departmentID string) error {
	if _, err := t.DB.Exec(ctx,
		`INSERT INTO departments (id, name) VALUES ($1, $1) ON CONFLICT DO NOTHING`, departmentID); err != nil {
		return err
	}
	_, err := t.DB.Exec(ctx,
		`INSERT INTO employees (id, employee_code, full_name, department_id, role) VALUES ($1, $1, $1, $2, 'staff')`,
		employeeID, departmentID)
	return err
}

func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
