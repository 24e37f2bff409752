// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an already opened database without running migrations.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// notFound maps sql.ErrNoRows onto store.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetTaskDetail(ctx context.Context, id string) (*model.TaskDetail, error) {
	d, err := queryGetTaskDetail(ctx, s.db, id)
	return d, notFound(err)
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter model.TaskFilter) ([]*model.TaskDetail, error) {
	return queryListTasks(ctx, s.db, filter)
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *model.Task) error {
	return queryCreateTask(ctx, s.db, task)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *model.Task) error {
	return notFound(queryUpdateTask(ctx, s.db, task))
}

func (s *PostgresStore) SetTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	return notFound(querySetTaskStatus(ctx, s.db, id, status))
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	return notFound(queryDeleteTask(ctx, s.db, id))
}

func (s *PostgresStore) CreateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	return queryCreateProject(ctx, s.db, project)
}

func (s *PostgresStore) UpdateProject(ctx context.Context, project *model.Project) (*model.Project, error) {
	p, err := queryUpdateProject(ctx, s.db, project)
	return p, notFound(err)
}

func (s *PostgresStore) ListProjectsForUser(ctx context.Context, userID string) ([]*model.Project, error) {
	return queryListProjectsForUser(ctx, s.db, userID)
}

func (s *PostgresStore) AddProjectMembers(ctx context.Context, projectID string, userIDs []string) error {
	return queryAddProjectMembers(ctx, s.db, projectID, userIDs)
}

func (s *PostgresStore) RemoveProjectMembers(ctx context.Context, projectID string, userIDs []string) error {
	return queryRemoveProjectMembers(ctx, s.db, projectID, userIDs)
}

func (s *PostgresStore) ListProjectMembers(ctx context.Context, projectID string) ([]*model.ProjectMember, error) {
	return queryListProjectMembers(ctx, s.db, projectID)
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := queryGetProfile(ctx, s.db, id)
	return p, notFound(err)
}

func (s *PostgresStore) ListAdmins(ctx context.Context) ([]*model.Profile, error) {
	return queryListAdmins(ctx, s.db)
}

func (s *PostgresStore) InsertNotifications(ctx context.Context, notifications []*model.Notification) error {
	return queryInsertNotifications(ctx, s.db, notifications)
}
