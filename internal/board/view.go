package board

import (
	"cmp"
	"slices"

	"github.com/support1122/flashfire-dashboard/internal/dates"
	"github.com/support1122/flashfire-dashboard/internal/models"
	"github.com/support1122/flashfire-dashboard/internal/pagination"
)

// Card is a job as rendered on the board.
type Card struct {
	models.Job
	State ItemState `json:"state"`
	Gated bool      `json:"gated,omitempty"`
}

// Column is one status lane, sorted newest first and cut to the current page.
type Column struct {
	Status     models.Status `json:"status"`
	Cards      []Card        `json:"cards"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
}

// Stats counts cards per column.
type Stats map[models.Status]int

// ColumnOf returns a single column for st.
func (s State) ColumnOf(st models.Status, pageSize int) Column {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	jobs := SortNewestFirst(s.filter(st))
	page := s.Page(st)
	pages := pagination.TotalPages(len(jobs), pageSize)

	visible := pagination.Slice(jobs, page, pageSize)
	cards := make([]Card, 0, len(visible))
	for _, j := range visible {
		_, gated := s.Gates[j.JobID]
		cards = append(cards, Card{Job: j, State: s.ItemOf(j.JobID).State, Gated: gated})
	}
	return Column{
		Status:     st,
		Cards:      cards,
		Total:      len(jobs),
		Page:       page,
		TotalPages: pages,
	}
}

// Columns returns every status lane in board order.
func (s State) Columns(pageSize int) []Column {
	cols := make([]Column, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		cols = append(cols, s.ColumnOf(st, pageSize))
	}
	return cols
}

// Stats returns per-column counts. Jobs whose status matches no column are
// not counted.
func (s State) Stats() Stats {
	out := make(Stats, len(models.Statuses))
	for _, st := range models.Statuses {
		out[st] = 0
	}
	for _, j := range s.Jobs {
		if st, ok := models.StatusOf(j.CurrentStatus); ok {
			out[st]++
		}
	}
	return out
}

func (s State) filter(st models.Status) []models.Job {
	var out []models.Job
	for _, j := range s.Jobs {
		if st.Matches(j.CurrentStatus) {
			out = append(out, j)
		}
	}
	return out
}

type sortKey struct {
	valid bool
	ts    int64
}

func keyOf(j models.Job) sortKey {
	if t, ok := dates.Parse(j.DateAdded); ok {
		return sortKey{valid: true, ts: t.UnixMilli()}
	}
	if t, ok := dates.Parse(j.CreatedAt); ok {
		return sortKey{valid: true, ts: t.UnixMilli()}
	}
	return sortKey{}
}

// SortNewestFirst orders jobs by dateAdded (createdAt as a fallback),
// newest first. Jobs with no usable date go last. Ties keep their input
// order. The input slice is not modified.
func SortNewestFirst(jobs []models.Job) []models.Job {
	type keyed struct {
		job models.Job
		key sortKey
	}
	ks := make([]keyed, len(jobs))
	for i, j := range jobs {
		ks[i] = keyed{job: j, key: keyOf(j)}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		if a.key.valid != b.key.valid {
			if a.key.valid {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.key.ts, a.key.ts)
	})
	out := make([]models.Job, len(ks))
	for i, k := range ks {
		out[i] = k.job
	}
	return out
}
