package postgres

import (
	"database/sql"
	"time"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// nullProfile holds the columns of a LEFT JOINed profile.
type nullProfile struct {
	id        sql.NullString
	email     sql.NullString
	fullName  sql.NullString
	avatarURL sql.NullString
	role      sql.NullString
}

func (n *nullProfile) dest() []any {
	return []any{&n.id, &n.email, &n.fullName, &n.avatarURL, &n.role}
}

func (n *nullProfile) profile() *model.Profile {
	if !n.id.Valid {
		return nil
	}
	return &model.Profile{
		ID:        n.id.String,
		Email:     n.email.String,
		FullName:  n.fullName.String,
		AvatarURL: n.avatarURL.String,
		Role:      model.Role(n.role.String),
	}
}

// scanTaskDetail scans a row laid out by taskDetailColumns. Relation
// slices are left empty; the caller loads them separately.
func scanTaskDetail(row scannable) (*model.TaskDetail, error) {
	var d model.TaskDetail
	var (
		description sql.NullString
		projectID   sql.NullString
		assigneeID  sql.NullString
		creatorID   sql.NullString
		dueAt       sql.NullTime

		assignee nullProfile
		creator  nullProfile

		pID        sql.NullString
		pName      sql.NullString
		pColor     sql.NullString
		pCreatedBy sql.NullString
		pCreatedAt sql.NullTime
		pUpdatedAt sql.NullTime
	)

	dest := []any{
		&d.ID,
		&d.Title,
		&description,
		&d.Status,
		&d.Priority,
		&projectID,
		&assigneeID,
		&creatorID,
		&dueAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
	dest = append(dest, assignee.dest()...)
	dest = append(dest, creator.dest()...)
	dest = append(dest, &pID, &pName, &pColor, &pCreatedBy, &pCreatedAt, &pUpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	d.Description = description.String
	d.ProjectID = projectID.String
	d.AssigneeID = assigneeID.String
	d.CreatorID = creatorID.String
	if dueAt.Valid {
		t := dueAt.Time
		d.DueAt = &t
	}
	d.Assignee = assignee.profile()
	d.Creator = creator.profile()
	if pID.Valid {
		d.Project = &model.Project{
			ID:        pID.String,
			Name:      pName.String,
			Color:     pColor.String,
			CreatedBy: pCreatedBy.String,
			CreatedAt: pCreatedAt.Time,
			UpdatedAt: pUpdatedAt.Time,
		}
	}
	d.Attachments = []model.Attachment{}
	d.TimeLogs = []model.TimeLog{}
	d.Comments = []model.Comment{}

	return &d, nil
}

// scanProject scans a row laid out by projectColumns.
func scanProject(row scannable) (*model.Project, error) {
	var p model.Project
	var createdBy sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Color, &createdBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedBy = createdBy.String
	return &p, nil
}

// scanProfile scans a row laid out by profileColumns.
func scanProfile(row scannable) (*model.Profile, error) {
	var n nullProfile
	if err := row.Scan(n.dest()...); err != nil {
		return nil, err
	}
	return n.profile(), nil
}

func scanProfiles(rows *sql.Rows) ([]*model.Profile, error) {
	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanAttachment(row scannable) (model.Attachment, error) {
	var a model.Attachment
	var uploadedBy sql.NullString
	err := row.Scan(&a.ID, &a.TaskID, &a.FileName, &a.FileURL, &uploadedBy, &a.CreatedAt)
	a.UploadedBy = uploadedBy.String
	return a, err
}

func scanTimeLog(row scannable) (model.TimeLog, error) {
	var l model.TimeLog
	var endedAt sql.NullTime
	err := row.Scan(&l.ID, &l.TaskID, &l.UserID, &l.StartedAt, &endedAt, &l.Minutes)
	if endedAt.Valid {
		t := endedAt.Time
		l.EndedAt = &t
	}
	return l, err
}

// scanComment scans a comment joined with its author's profile.
func scanComment(row scannable) (model.Comment, error) {
	var c model.Comment
	var (
		authorID sql.NullString
		author   nullProfile
	)
	dest := append([]any{&c.ID, &c.TaskID, &authorID, &c.Text, &c.CreatedAt}, author.dest()...)
	if err := row.Scan(dest...); err != nil {
		return c, err
	}
	c.AuthorID = authorID.String
	c.Author = author.profile()
	return c, nil
}

// nullTimePtr converts a *time.Time to sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
