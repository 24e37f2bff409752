package model

// Table names a backend table watched by the change feed.
type Table string

const (
	TableTasks           Table = "tasks"
	TableTaskAttachments Table = "task_attachments"
	TableTaskComments    Table = "task_comments"
	TableProjects        Table = "projects"
	TableProjectMembers  Table = "project_members"
	TableProfiles        Table = "profiles"
)

// String returns the table name.
func (t Table) String() string {
	return string(t)
}

// IsValid reports whether t is one of the watched tables.
func (t Table) IsValid() bool {
	switch t {
	case TableTasks, TableTaskAttachments, TableTaskComments,
		TableProjects, TableProjectMembers, TableProfiles:
		return true
	}
	return false
}

// WatchedTables returns the fixed set of tables the change feed subscribes to.
func WatchedTables() []Table {
	return []Table{
		TableTasks,
		TableTaskAttachments,
		TableTaskComments,
		TableProjects,
		TableProjectMembers,
		TableProfiles,
	}
}

// MemberKey is the record key used for project_members rows, which have no
// single-column primary id.
func MemberKey(projectID, userID string) string {
	return projectID + ":" + userID
}
