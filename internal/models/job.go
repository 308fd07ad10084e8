package models

import (
	"strconv"
	"strings"
	"time"
)

// Status is one of the six fixed pipeline stages a job can sit in.
type Status string

// Status constants define the board columns, in display order.
const (
	StatusSaved        Status = "saved"
	StatusApplied      Status = "applied"
	StatusInterviewing Status = "interviewing"
	StatusOffer        Status = "offer"
	StatusRejected     Status = "rejected"
	StatusDeleted      Status = "deleted"
)

// Statuses lists every column in board order.
var Statuses = []Status{
	StatusSaved,
	StatusApplied,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusDeleted,
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsForward reports whether s is a forward pipeline stage, i.e. anything
// past saved except deleted.
func (s Status) IsForward() bool {
	switch s {
	case StatusApplied, StatusInterviewing, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// Matches reports whether a composite currentStatus ("applied by user")
// belongs to the column s. Matching is by prefix, never equality.
func (s Status) Matches(currentStatus string) bool {
	return strings.HasPrefix(currentStatus, string(s))
}

// StatusOf returns the column a composite status belongs to.
func StatusOf(currentStatus string) (Status, bool) {
	for _, s := range Statuses {
		if s.Matches(currentStatus) {
			return s, true
		}
	}
	return "", false
}

// Role identifies who is driving the dashboard.
type Role string

// Role constants.
const (
	RoleUser       Role = "user"
	RoleOperations Role = "operations"
)

// Actor is the caller recorded in the status suffix.
type Actor struct {
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}

// IsOperations reports whether the actor is an operations staff member
// acting on a client's board.
func (a Actor) IsOperations() bool {
	return a.Role == RoleOperations
}

// Suffix returns the "by ..." part of a composite status.
func (a Actor) Suffix() string {
	if a.IsOperations() && a.Name != "" {
		return "by " + a.Name
	}
	return "by user"
}

// ComposeStatus builds the composite status string stored on a job.
func ComposeStatus(s Status, a Actor) string {
	return string(s) + " " + a.Suffix()
}

// Job is the subset of the backend's job document the board reads and writes.
type Job struct {
	JobID          string   `json:"jobID"`
	CurrentStatus  string   `json:"currentStatus"`
	DateAdded      string   `json:"dateAdded,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
	UpdatedAt      string   `json:"updatedAt,omitempty"`
	Attachments    []string `json:"attachments"`
	JobTitle       string   `json:"jobTitle"`
	CompanyName    string   `json:"companyName"`
	JobDescription string   `json:"jobDescription,omitempty"`
	JobLink        string   `json:"joblink,omitempty"`
}

// Status returns the column the job currently belongs to.
func (j Job) Status() Status {
	s, _ := StatusOf(j.CurrentStatus)
	return s
}

// HasAttachment reports whether at least one non-empty attachment URL exists.
func (j Job) HasAttachment() bool {
	for _, a := range j.Attachments {
		if strings.TrimSpace(a) != "" {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the job.
func (j Job) Clone() Job {
	if j.Attachments != nil {
		j.Attachments = append([]string(nil), j.Attachments...)
	}
	return j
}

// NewJobID assigns an identifier the way the dashboard always has: the
// creation instant in unix milliseconds. Two jobs created in the same
// millisecond collide.
func NewJobID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// JobDetails carries the editable fields of a job in add/edit requests.
type JobDetails struct {
	JobID          string   `json:"jobID,omitempty"`
	JobTitle       string   `json:"jobTitle"`
	CompanyName    string   `json:"companyName"`
	JobDescription string   `json:"jobDescription,omitempty"`
	JobLink        string   `json:"joblink,omitempty"`
	CurrentStatus  string   `json:"currentStatus,omitempty"`
	DateAdded      string   `json:"dateAdded,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
}
