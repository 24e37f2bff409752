package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/taskboard/internal/model"
	"github.com/alfredjeanlab/taskboard/internal/store"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

var taskDetailRowColumns = []string{
	"id", "title", "description", "status", "priority",
	"project_id", "assignee_id", "creator_id", "due_at", "created_at", "updated_at",
	"a_id", "a_email", "a_full_name", "a_avatar_url", "a_role",
	"c_id", "c_email", "c_full_name", "c_avatar_url", "c_role",
	"p_id", "p_name", "p_color", "p_created_by", "p_created_at", "p_updated_at",
}

var projectRowColumns = []string{"id", "name", "color", "created_by", "created_at", "updated_at"}

var profileRowColumns = []string{"id", "email", "full_name", "avatar_url", "role"}

// addTaskRow adds a task row assigned to u1, created by u2, in project pr-1.
func addTaskRow(rows *sqlmock.Rows, id int64, title string, now time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, title, nil, "todo", int64(2),
		"pr-1", "u1", "u2", nil, now, now,
		"u1", "ana@example.com", "Ana", nil, "member",
		"u2", "bo@example.com", nil, nil, "admin",
		"pr-1", "Alpha", "#ff0000", "u2", now, now,
	)
}

// emptyRelationExpectations expects the attachment, time log and comment
// queries that follow a task detail lookup, each returning no rows.
func emptyRelationExpectations(mock sqlmock.Sqlmock, id string) {
	mock.ExpectQuery("FROM task_attachments WHERE task_id = \\$1").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "file_name", "file_url", "uploaded_by", "created_at"}))
	mock.ExpectQuery("FROM task_time_logs WHERE task_id = \\$1").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "started_at", "ended_at", "minutes"}))
	mock.ExpectQuery("FROM task_comments c").WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "author_id", "text", "created_at",
			"a_id", "a_email", "a_full_name", "a_avatar_url", "a_role"}))
}

func TestNullHelpers(t *testing.T) {
	if nullString("").Valid {
		t.Error("nullString(\"\") should be invalid")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("nullString(\"x\") = %+v", ns)
	}
	if nullTimePtr(nil).Valid {
		t.Error("nullTimePtr(nil) should be invalid")
	}
	now := time.Now()
	if nt := nullTimePtr(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTimePtr(&now) = %+v", nt)
	}
}

func TestQueryGetTaskDetail(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery("SELECT .+ FROM tasks t").WithArgs("42").
		WillReturnRows(addTaskRow(sqlmock.NewRows(taskDetailRowColumns), 42, "Write docs", now))
	mock.ExpectQuery("FROM task_attachments WHERE task_id = \\$1").WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "file_name", "file_url", "uploaded_by", "created_at"}).
			AddRow(int64(1), int64(42), "spec.pdf", "https://files/spec.pdf", "u1", now))
	mock.ExpectQuery("FROM task_time_logs WHERE task_id = \\$1").WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "user_id", "started_at", "ended_at", "minutes"}).
			AddRow(int64(1), int64(42), "u1", now, now, int64(30)).
			AddRow(int64(2), int64(42), "u1", now, nil, int64(15)))
	mock.ExpectQuery("FROM task_comments c").WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "task_id", "author_id", "text", "created_at",
			"a_id", "a_email", "a_full_name", "a_avatar_url", "a_role"}).
			AddRow(int64(7), int64(42), "u2", "looks good", now, "u2", "bo@example.com", nil, nil, "admin").
			AddRow(int64(8), int64(42), nil, "orphan", now, nil, nil, nil, nil, nil))

	d, err := queryGetTaskDetail(context.Background(), db, "42")
	if err != nil {
		t.Fatalf("queryGetTaskDetail: %v", err)
	}
	if d.ID != "42" || d.Title != "Write docs" || d.Status != model.TaskTodo {
		t.Errorf("task = %+v", d.Task)
	}
	if d.Assignee == nil || d.Assignee.DisplayName() != "Ana" {
		t.Errorf("assignee = %+v", d.Assignee)
	}
	if d.Creator == nil || d.Creator.DisplayName() != "bo@example.com" {
		t.Errorf("creator = %+v", d.Creator)
	}
	if d.Project == nil || d.Project.Name != "Alpha" {
		t.Errorf("project = %+v", d.Project)
	}
	if len(d.Attachments) != 1 || d.Attachments[0].FileName != "spec.pdf" {
		t.Errorf("attachments = %+v", d.Attachments)
	}
	if got := d.TotalMinutes(); got != 45 {
		t.Errorf("TotalMinutes = %d, want 45", got)
	}
	if d.TimeLogs[1].EndedAt != nil {
		t.Error("open time log should have nil EndedAt")
	}
	if len(d.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(d.Comments))
	}
	if d.Comments[0].Author == nil || d.Comments[0].Author.ID != "u2" {
		t.Errorf("comment author = %+v", d.Comments[0].Author)
	}
	if d.Comments[1].Author != nil || d.Comments[1].AuthorID != "" {
		t.Errorf("orphan comment = %+v", d.Comments[1])
	}
}

func TestGetTaskDetail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery("SELECT .+ FROM tasks t").WithArgs("9").
		WillReturnRows(sqlmock.NewRows(taskDetailRowColumns))

	_, err := s.GetTaskDetail(context.Background(), "9")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestQueryGetTaskDetail_NoJoins(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	row := sqlmock.NewRows(taskDetailRowColumns).AddRow(
		int64(5), "Loose", "body", "done", int64(1),
		nil, nil, nil, now, now, now,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil,
	)
	mock.ExpectQuery("SELECT .+ FROM tasks t").WithArgs("5").WillReturnRows(row)
	emptyRelationExpectations(mock, "5")

	d, err := queryGetTaskDetail(context.Background(), db, "5")
	if err != nil {
		t.Fatalf("queryGetTaskDetail: %v", err)
	}
	if d.Assignee != nil || d.Creator != nil || d.Project != nil {
		t.Errorf("expected no joined records, got %+v %+v %+v", d.Assignee, d.Creator, d.Project)
	}
	if d.DueAt == nil {
		t.Error("expected DueAt to be set")
	}
	if d.Attachments == nil || d.TimeLogs == nil || d.Comments == nil {
		t.Error("relation slices should be empty, not nil")
	}
}

func TestQueryListTasks_Filters(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(`t\.project_id = ANY\(\$1\) AND t\.assignee_id = \$2 AND t\.status IN \(\$3, \$4\) AND .+ILIKE.+ LIMIT \$6`).
		WithArgs(sqlmock.AnyArg(), "u1", "todo", "review", "docs", 10).
		WillReturnRows(addTaskRow(addTaskRow(sqlmock.NewRows(taskDetailRowColumns), 1, "a", now), 2, "b", now))

	tasks, err := queryListTasks(context.Background(), db, model.TaskFilter{
		ProjectIDs: []string{"pr-1", "pr-2"},
		AssigneeID: "u1",
		Status:     []model.TaskStatus{model.TaskTodo, model.TaskReview},
		Search:     "docs",
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("queryListTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "1" || tasks[1].ID != "2" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestQueryListTasks_NoFilter(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM tasks t\s+LEFT JOIN .+ ORDER BY t\.priority ASC, t\.updated_at DESC$`).
		WillReturnRows(sqlmock.NewRows(taskDetailRowColumns))

	tasks, err := queryListTasks(context.Background(), db, model.TaskFilter{})
	if err != nil {
		t.Fatalf("queryListTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestQueryCreateTask(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs("Ship it", nil, "todo", 2, "pr-1", nil, "u1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(77), now, now))

	task := &model.Task{Title: "Ship it", Status: model.TaskTodo, Priority: 2, ProjectID: "pr-1", CreatorID: "u1"}
	if err := queryCreateTask(context.Background(), db, task); err != nil {
		t.Fatalf("queryCreateTask: %v", err)
	}
	if task.ID != "77" {
		t.Errorf("ID = %q, want 77", task.ID)
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", task.CreatedAt, now)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery("UPDATE tasks SET").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := s.UpdateTask(context.Background(), &model.Task{ID: "1", Title: "x", Status: model.TaskTodo})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestSetTaskStatus(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectExec("UPDATE tasks SET status = \\$2").WithArgs("1", "done").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET status = \\$2").WithArgs("2", "done").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.SetTaskStatus(context.Background(), "1", model.TaskDone); err != nil {
		t.Fatalf("SetTaskStatus: %v", err)
	}
	if err := s.SetTaskStatus(context.Background(), "2", model.TaskDone); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectExec("DELETE FROM tasks WHERE id = \\$1").WithArgs("3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tasks WHERE id = \\$1").WithArgs("4").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteTask(context.Background(), "3"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if err := s.DeleteTask(context.Background(), "4"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestQueryCreateProject(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("pr-abc", "Alpha", "#ff0000", "u1").
		WillReturnRows(sqlmock.NewRows(projectRowColumns).AddRow("pr-abc", "Alpha", "#ff0000", "u1", now, now))

	p, err := queryCreateProject(context.Background(), db, &model.Project{ID: "pr-abc", Name: "Alpha", Color: "#ff0000", CreatedBy: "u1"})
	if err != nil {
		t.Fatalf("queryCreateProject: %v", err)
	}
	if p.ID != "pr-abc" || p.CreatedBy != "u1" || !p.CreatedAt.Equal(now) {
		t.Errorf("project = %+v", p)
	}
}

func TestUpdateProject_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)

	mock.ExpectQuery("UPDATE projects SET").WithArgs("pr-x", "Beta", "#00ff00").
		WillReturnRows(sqlmock.NewRows(projectRowColumns))

	_, err := s.UpdateProject(context.Background(), &model.Project{ID: "pr-x", Name: "Beta", Color: "#00ff00"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestQueryListProjectsForUser(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("JOIN project_members m ON m.project_id = p.id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(projectRowColumns).
			AddRow("pr-1", "Alpha", "#ff0000", nil, now, now).
			AddRow("pr-2", "Beta", "#00ff00", "u1", now, now))

	projects, err := queryListProjectsForUser(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("queryListProjectsForUser: %v", err)
	}
	if len(projects) != 2 || projects[0].CreatedBy != "" || projects[1].Name != "Beta" {
		t.Errorf("projects = %+v", projects)
	}
}

func TestProjectMembers(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO project_members").
		WithArgs("pr-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM project_members WHERE project_id = \\$1 AND user_id = ANY").
		WithArgs("pr-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := queryAddProjectMembers(ctx, db, "pr-1", []string{"u1", "u2"}); err != nil {
		t.Fatalf("queryAddProjectMembers: %v", err)
	}
	if err := queryRemoveProjectMembers(ctx, db, "pr-1", []string{"u3"}); err != nil {
		t.Fatalf("queryRemoveProjectMembers: %v", err)
	}
}

func TestProjectMembers_EmptyIsNoop(t *testing.T) {
	db, _ := newMockDB(t)
	ctx := context.Background()

	if err := queryAddProjectMembers(ctx, db, "pr-1", nil); err != nil {
		t.Fatalf("queryAddProjectMembers: %v", err)
	}
	if err := queryRemoveProjectMembers(ctx, db, "pr-1", []string{}); err != nil {
		t.Fatalf("queryRemoveProjectMembers: %v", err)
	}
}

func TestQueryAddProjectMembers_Error(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("INSERT INTO project_members").
		WillReturnError(errors.New("permission denied"))

	err := queryAddProjectMembers(context.Background(), db, "pr-1", []string{"u1"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestQueryListProjectMembers(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("FROM project_members WHERE project_id = \\$1").WithArgs("pr-1").
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "added_at"}).
			AddRow("pr-1", "u1", now).
			AddRow("pr-1", "u2", now))

	members, err := queryListProjectMembers(context.Background(), db, "pr-1")
	if err != nil {
		t.Fatalf("queryListProjectMembers: %v", err)
	}
	if len(members) != 2 || members[1].Key() != "pr-1:u2" {
		t.Errorf("members = %+v", members)
	}
}

func TestProfiles(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM profiles WHERE id = \\$1").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileRowColumns).AddRow("u1", "ana@example.com", "Ana", nil, "admin"))
	mock.ExpectQuery("FROM profiles WHERE id = \\$1").WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(profileRowColumns))
	mock.ExpectQuery("FROM profiles WHERE role = \\$1").WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(profileRowColumns).
			AddRow("u1", "ana@example.com", "Ana", nil, "admin").
			AddRow("u9", "zed@example.com", nil, nil, "admin"))

	p, err := s.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Role != model.RoleAdmin || p.FullName != "Ana" {
		t.Errorf("profile = %+v", p)
	}

	if _, err := s.GetProfile(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}
	if len(admins) != 2 || admins[1].DisplayName() != "zed@example.com" {
		t.Errorf("admins = %+v", admins)
	}
}

func TestQueryInsertNotifications(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO notifications .+ VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\), \(\$7, \$8, \$9, \$10, \$11, \$12\)`).
		WithArgs(
			"nt-1", "u2", "project_created", "New project", "Alpha was created", "pr-1",
			"nt-2", "u3", "project_created", "New project", "Alpha was created", "pr-1",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := queryInsertNotifications(context.Background(), db, []*model.Notification{
		{ID: "nt-1", UserID: "u2", Kind: model.NotifyProjectCreated, Title: "New project", Message: "Alpha was created", ProjectID: "pr-1"},
		{ID: "nt-2", UserID: "u3", Kind: model.NotifyProjectCreated, Title: "New project", Message: "Alpha was created", ProjectID: "pr-1"},
	})
	if err != nil {
		t.Fatalf("queryInsertNotifications: %v", err)
	}
}

func TestQueryInsertNotifications_Empty(t *testing.T) {
	db, _ := newMockDB(t)
	if err := queryInsertNotifications(context.Background(), db, nil); err != nil {
		t.Fatalf("queryInsertNotifications: %v", err)
	}
}
