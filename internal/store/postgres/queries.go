package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// taskDetailColumns selects a task with its assignee, creator and project
// joined in. Use with taskDetailFrom.
const taskDetailColumns = `t.id, t.title, t.description, t.status, t.priority,
	t.project_id, t.assignee_id, t.creator_id, t.due_at, t.created_at, t.updated_at,
	a.id, a.email, a.full_name, a.avatar_url, a.role,
	c.id, c.email, c.full_name, c.avatar_url, c.role,
	p.id, p.name, p.color, p.created_by, p.created_at, p.updated_at`

const taskDetailFrom = ` FROM tasks t
	LEFT JOIN profiles a ON a.id = t.assignee_id
	LEFT JOIN profiles c ON c.id = t.creator_id
	LEFT JOIN projects p ON p.id = t.project_id`

const projectColumns = `id, name, color, created_by, created_at, updated_at`

const profileColumns = `id, email, full_name, avatar_url, role`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryGetTaskDetail(ctx context.Context, db executor, id string) (*model.TaskDetail, error) {
	row := db.QueryRowContext(ctx, `SELECT `+taskDetailColumns+taskDetailFrom+` WHERE t.id = $1`, id)
	d, err := scanTaskDetail(row)
	if err != nil {
		return nil, err
	}
	if err := loadTaskRelations(ctx, db, d); err != nil {
		return nil, err
	}
	return d, nil
}

// loadTaskRelations fills the attachment, time log and comment slices of d.
func loadTaskRelations(ctx context.Context, db executor, d *model.TaskDetail) error {
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_id, file_name, file_url, uploaded_by, created_at
		FROM task_attachments WHERE task_id = $1 ORDER BY created_at`, d.ID)
	if err != nil {
		return fmt.Errorf("get attachments: %w", err)
	}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan attachment: %w", err)
		}
		d.Attachments = append(d.Attachments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan attachments: %w", err)
	}

	rows, err = db.QueryContext(ctx, `
		SELECT id, task_id, user_id, started_at, ended_at, minutes
		FROM task_time_logs WHERE task_id = $1 ORDER BY started_at`, d.ID)
	if err != nil {
		return fmt.Errorf("get time logs: %w", err)
	}
	for rows.Next() {
		l, err := scanTimeLog(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan time log: %w", err)
		}
		d.TimeLogs = append(d.TimeLogs, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan time logs: %w", err)
	}

	rows, err = db.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.author_id, c.text, c.created_at,
			a.id, a.email, a.full_name, a.avatar_url, a.role
		FROM task_comments c
		LEFT JOIN profiles a ON a.id = c.author_id
		WHERE c.task_id = $1 ORDER BY c.created_at`, d.ID)
	if err != nil {
		return fmt.Errorf("get comments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		d.Comments = append(d.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan comments: %w", err)
	}
	return nil
}

// queryListTasks returns task headers with joined profiles and project.
// Relation slices are not loaded.
func queryListTasks(ctx context.Context, db executor, filter model.TaskFilter) ([]*model.TaskDetail, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if len(filter.ProjectIDs) > 0 {
		whereClauses = append(whereClauses, "t.project_id = ANY("+nextArg()+")")
		args = append(args, pq.Array(filter.ProjectIDs))
	}

	if filter.AssigneeID != "" {
		whereClauses = append(whereClauses, "t.assignee_id = "+nextArg())
		args = append(args, filter.AssigneeID)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "t.status IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses,
			fmt.Sprintf("(t.title ILIKE '%%' || %s || '%%' OR t.description ILIKE '%%' || %s || '%%')", p, p))
		args = append(args, filter.Search)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query := "SELECT " + taskDetailColumns + taskDetailFrom + whereSQL + " ORDER BY t.priority ASC, t.updated_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.TaskDetail
	for rows.Next() {
		d, err := scanTaskDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tasks: %w", err)
		}
		tasks = append(tasks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan tasks: %w", err)
	}
	return tasks, nil
}

func queryCreateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO tasks (
			title, description, status, priority,
			project_id, assignee_id, creator_id, due_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		t.Priority,
		nullString(t.ProjectID),
		nullString(t.AssigneeID),
		nullString(t.CreatorID),
		nullTimePtr(t.DueAt),
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func queryUpdateTask(ctx context.Context, db executor, t *model.Task) error {
	return db.QueryRowContext(ctx, `
		UPDATE tasks SET
			title = $2,
			description = $3,
			status = $4,
			priority = $5,
			project_id = $6,
			assignee_id = $7,
			due_at = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID,
		t.Title,
		nullString(t.Description),
		string(t.Status),
		t.Priority,
		nullString(t.ProjectID),
		nullString(t.AssigneeID),
		nullTimePtr(t.DueAt),
	).Scan(&t.UpdatedAt)
}

func querySetTaskStatus(ctx context.Context, db executor, id string, status model.TaskStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE tasks SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}
	return requireRow(res)
}

func queryDeleteTask(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

// requireRow returns sql.ErrNoRows when res affected nothing.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryCreateProject(ctx context.Context, db executor, p *model.Project) (*model.Project, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO projects (id, name, color, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+projectColumns,
		p.ID, p.Name, p.Color, nullString(p.CreatedBy))
	created, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return created, nil
}

func queryUpdateProject(ctx context.Context, db executor, p *model.Project) (*model.Project, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE projects SET name = $2, color = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+projectColumns,
		p.ID, p.Name, p.Color)
	return scanProject(row)
}

func queryListProjectsForUser(ctx context.Context, db executor, userID string) ([]*model.Project, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.name, p.color, p.created_by, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan projects: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan projects: %w", err)
	}
	return projects, nil
}

func queryAddProjectMembers(ctx context.Context, db executor, projectID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id)
		SELECT $1, u FROM unnest($2::uuid[]) AS u
		ON CONFLICT DO NOTHING`,
		projectID, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("add project members: %w", err)
	}
	return nil
}

func queryRemoveProjectMembers(ctx context.Context, db executor, projectID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = ANY($2::uuid[])`,
		projectID, pq.Array(userIDs))
	if err != nil {
		return fmt.Errorf("remove project members: %w", err)
	}
	return nil
}

func queryListProjectMembers(ctx context.Context, db executor, projectID string) ([]*model.ProjectMember, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project_id, user_id, added_at
		FROM project_members WHERE project_id = $1
		ORDER BY added_at`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	defer rows.Close()

	var members []*model.ProjectMember
	for rows.Next() {
		var m model.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("scan project members: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan project members: %w", err)
	}
	return members, nil
}

func queryGetProfile(ctx context.Context, db executor, id string) (*model.Profile, error) {
	row := db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func queryListAdmins(ctx context.Context, db executor) ([]*model.Profile, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE role = $1 ORDER BY email`, string(model.RoleAdmin))
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	admins, err := scanProfiles(rows)
	if err != nil {
		return nil, fmt.Errorf("scan admins: %w", err)
	}
	return admins, nil
}

// queryInsertNotifications writes all notifications in one multi-row insert.
func queryInsertNotifications(ctx context.Context, db executor, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	var (
		values []string
		args   []any
		argIdx int
	)
	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	for _, n := range notifications {
		values = append(values, fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
			nextArg(), nextArg(), nextArg(), nextArg(), nextArg(), nextArg()))
		args = append(args, n.ID, n.UserID, string(n.Kind), n.Title, n.Message, nullString(n.ProjectID))
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, message, project_id)
		VALUES `+strings.Join(values, ", "), args...)
	if err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}
