package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_MatchesByPrefix(t *testing.T) {
	for _, s := range Statuses {
		for _, suffix := range []string{"by user", "by operations", "by Priya", ""} {
			current := string(s) + " " + suffix
			assert.True(t, s.Matches(current), "%q should be in column %s", current, s)
		}
	}

	assert.False(t, StatusApplied.Matches("saved by applied"))
	assert.False(t, StatusSaved.Matches(""))
}

func TestStatusOf_SuffixDoesNotChangeColumn(t *testing.T) {
	a, ok := StatusOf("interviewing by user")
	assert.True(t, ok)
	b, _ := StatusOf("interviewing by Rahul from ops")
	assert.Equal(t, a, b)
	assert.Equal(t, StatusInterviewing, a)

	_, ok = StatusOf("archived by user")
	assert.False(t, ok)
}

func TestStatus_IsForward(t *testing.T) {
	assert.True(t, StatusApplied.IsForward())
	assert.True(t, StatusInterviewing.IsForward())
	assert.True(t, StatusOffer.IsForward())
	assert.True(t, StatusRejected.IsForward())
	assert.False(t, StatusSaved.IsForward())
	assert.False(t, StatusDeleted.IsForward())
	assert.False(t, Status("bogus").IsValid())
}

func TestComposeStatus(t *testing.T) {
	assert.Equal(t, "applied by user", ComposeStatus(StatusApplied, Actor{Role: RoleUser}))
	assert.Equal(t, "offer by Anita", ComposeStatus(StatusOffer, Actor{Role: RoleOperations, Name: "Anita"}))
	// an operations actor without a name falls back to the user suffix
	assert.Equal(t, "offer by user", ComposeStatus(StatusOffer, Actor{Role: RoleOperations}))
}

func TestJob_HasAttachment(t *testing.T) {
	j := Job{}
	assert.False(t, j.HasAttachment())
	j.Attachments = []string{"  "}
	assert.False(t, j.HasAttachment())
	j.Attachments = append(j.Attachments, "https://cdn.example.com/resume.pdf")
	assert.True(t, j.HasAttachment())
}

func TestJob_CloneCopiesAttachments(t *testing.T) {
	j := Job{JobID: "1", Attachments: []string{"a"}}
	c := j.Clone()
	c.Attachments[0] = "b"
	assert.Equal(t, "a", j.Attachments[0])
}

func TestNewJobID(t *testing.T) {
	ts := time.UnixMilli(1733221800000)
	assert.Equal(t, "1733221800000", NewJobID(ts))
}
