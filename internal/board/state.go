package board

import (
	"time"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/models"
)

// ItemState is the transient lifecycle of a single card.
type ItemState string

// ItemState values. A card without an entry in State.Items is confirmed.
const (
	ItemConfirmed ItemState = "confirmed"
	ItemPending   ItemState = "pending"
	ItemReverting ItemState = "reverting"
)

// Item tracks an in-flight move on one job.
type Item struct {
	State ItemState `json:"state"`
	OpID  uuid.UUID `json:"op_id"`
	// Optimistic is the status shown while the request is in flight.
	Optimistic string `json:"optimistic,omitempty"`
	// Previous is the status to restore when the move fails.
	Previous            string   `json:"previous,omitempty"`
	PreviousAttachments []string `json:"-"`
	PreviousUpdatedAt   string   `json:"-"`
}

// Gate is a saved -> forward drop waiting for an attachment.
type Gate struct {
	JobID       string        `json:"job_id"`
	From        string        `json:"from"`
	Destination models.Status `json:"destination"`
	OpenedAt    time.Time     `json:"opened_at"`
}

// State is an immutable snapshot of a board. Reduce never mutates its
// input; every change produces fresh slices and maps.
type State struct {
	Jobs    []models.Job
	Items   map[string]Item
	Gates   map[string]Gate
	Pages   map[models.Status]int
	Version uint64
}

// NewState builds the initial state from a job list.
func NewState(jobs []models.Job) State {
	return State{
		Jobs:  cloneJobs(jobs),
		Items: map[string]Item{},
		Gates: map[string]Gate{},
		Pages: map[models.Status]int{},
	}
}

// Job looks a job up by ID.
func (s State) Job(id string) (models.Job, bool) {
	if i := s.index(id); i >= 0 {
		return s.Jobs[i], true
	}
	return models.Job{}, false
}

// ItemOf returns the transient state of a job, confirmed when untracked.
func (s State) ItemOf(id string) Item {
	if it, ok := s.Items[id]; ok {
		return it
	}
	return Item{State: ItemConfirmed}
}

// Page returns the current page of a column, starting at 1.
func (s State) Page(st models.Status) int {
	if p := s.Pages[st]; p > 0 {
		return p
	}
	return 1
}

func (s State) index(id string) int {
	for i := range s.Jobs {
		if s.Jobs[i].JobID == id {
			return i
		}
	}
	return -1
}

// Action is a state transition request handed to Reduce.
type Action interface {
	action()
}

// Replace swaps the whole collection for the server's canonical list.
// OpID, when set, is the move the list resolves.
type Replace struct {
	Jobs []models.Job
	OpID uuid.UUID
}

// Optimistic shows a move before the server has confirmed it.
type Optimistic struct {
	JobID     string
	Status    string
	UpdatedAt string
	OpID      uuid.UUID
	// Attachments replaces the job's attachment list when non-nil.
	Attachments []string
}

// Revert restores the pre-move status of a failed move.
type Revert struct {
	JobID string
	OpID  uuid.UUID
}

// Settle finishes a revert, leaving the card confirmed.
type Settle struct {
	JobID string
	OpID  uuid.UUID
}

// OpenGate records a drop that needs an attachment first.
type OpenGate struct {
	Gate Gate
}

// CloseGate drops a pending gate.
type CloseGate struct {
	JobID string
}

// SetPage moves a column to another page.
type SetPage struct {
	Status models.Status
	Page   int
}

func (Replace) action()    {}
func (Optimistic) action() {}
func (Revert) action()     {}
func (Settle) action()     {}
func (OpenGate) action()   {}
func (CloseGate) action()  {}
func (SetPage) action()    {}

// Reduce applies a to s. The boolean reports whether anything changed;
// when it is false the returned state is s itself.
func Reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case Replace:
		return reduceReplace(s, a), true

	case Optimistic:
		i := s.index(a.JobID)
		if i < 0 {
			return s, false
		}
		next := s.copyAll()
		job := next.Jobs[i]
		it := Item{
			State:               ItemPending,
			OpID:                a.OpID,
			Optimistic:          a.Status,
			Previous:            job.CurrentStatus,
			PreviousAttachments: job.Attachments,
			PreviousUpdatedAt:   job.UpdatedAt,
		}
		if prior, ok := s.Items[a.JobID]; ok && prior.State == ItemPending {
			// the card shows an unconfirmed status; a failure must go back
			// to the last confirmed one
			it.Previous = prior.Previous
			it.PreviousAttachments = prior.PreviousAttachments
			it.PreviousUpdatedAt = prior.PreviousUpdatedAt
		}
		next.Items[a.JobID] = it
		job.CurrentStatus = a.Status
		job.UpdatedAt = a.UpdatedAt
		if a.Attachments != nil {
			job.Attachments = append([]string(nil), a.Attachments...)
		}
		next.Jobs[i] = job
		if models.StatusApplied.Matches(a.Status) {
			next.Pages[models.StatusApplied] = 1
		}
		return next, true

	case Revert:
		it, ok := s.Items[a.JobID]
		if !ok || it.OpID != a.OpID || it.State != ItemPending {
			// a newer move owns the card, or it already settled
			return s, false
		}
		next := s.copyAll()
		if i := next.index(a.JobID); i >= 0 {
			job := next.Jobs[i]
			job.CurrentStatus = it.Previous
			job.Attachments = it.PreviousAttachments
			job.UpdatedAt = it.PreviousUpdatedAt
			next.Jobs[i] = job
		}
		it.State = ItemReverting
		next.Items[a.JobID] = it
		return next, true

	case Settle:
		it, ok := s.Items[a.JobID]
		if !ok || it.OpID != a.OpID || it.State != ItemReverting {
			return s, false
		}
		next := s.copyAll()
		delete(next.Items, a.JobID)
		return next, true

	case OpenGate:
		if s.index(a.Gate.JobID) < 0 {
			return s, false
		}
		next := s.copyAll()
		next.Gates[a.Gate.JobID] = a.Gate
		return next, true

	case CloseGate:
		if _, ok := s.Gates[a.JobID]; !ok {
			return s, false
		}
		next := s.copyAll()
		delete(next.Gates, a.JobID)
		return next, true

	case SetPage:
		if !a.Status.IsValid() {
			return s, false
		}
		page := a.Page
		if page < 1 {
			page = 1
		}
		if s.Page(a.Status) == page {
			return s, false
		}
		next := s.copyAll()
		next.Pages[a.Status] = page
		return next, true
	}
	return s, false
}

// reduceReplace installs the canonical list. The resolved move's item is
// dropped; other moves still in flight keep their optimistic status on top
// of the new list so their cards do not jump back while waiting.
func reduceReplace(s State, a Replace) State {
	next := s.copyAll()
	next.Jobs = cloneJobs(a.Jobs)
	if next.Jobs == nil {
		next.Jobs = []models.Job{}
	}

	items := make(map[string]Item, len(s.Items))
	for id, it := range s.Items {
		if a.OpID != uuid.Nil && it.OpID == a.OpID {
			continue
		}
		i := next.index(id)
		if i < 0 {
			continue
		}
		if it.State == ItemPending {
			job := next.Jobs[i]
			it.Previous = job.CurrentStatus
			it.PreviousAttachments = job.Attachments
			it.PreviousUpdatedAt = job.UpdatedAt
			job.CurrentStatus = it.Optimistic
			next.Jobs[i] = job
		}
		items[id] = it
	}
	next.Items = items

	for id := range next.Gates {
		job, ok := next.Job(id)
		if !ok || !models.StatusSaved.Matches(job.CurrentStatus) {
			delete(next.Gates, id)
		}
	}
	return next
}

func (s State) copyAll() State {
	next := State{
		Jobs:    append([]models.Job(nil), s.Jobs...),
		Items:   make(map[string]Item, len(s.Items)+1),
		Gates:   make(map[string]Gate, len(s.Gates)+1),
		Pages:   make(map[models.Status]int, len(s.Pages)+1),
		Version: s.Version,
	}
	for k, v := range s.Items {
		next.Items[k] = v
	}
	for k, v := range s.Gates {
		next.Gates[k] = v
	}
	for k, v := range s.Pages {
		next.Pages[k] = v
	}
	return next
}

func cloneJobs(jobs []models.Job) []models.Job {
	if jobs == nil {
		return nil
	}
	out := make([]models.Job, len(jobs))
	for i, j := range jobs {
		out[i] = j.Clone()
	}
	return out
}
