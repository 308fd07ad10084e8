// Package board holds a single session's kanban state and runs every
// mutation against the job API: optimistic moves with revert on failure,
// the attachment gate on saved jobs, and canonical replacement on success.
package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/backend"
	"github.com/support1122/flashfire-dashboard/internal/dates"
	"github.com/support1122/flashfire-dashboard/internal/logger"
	"github.com/support1122/flashfire-dashboard/internal/models"
	"github.com/support1122/flashfire-dashboard/internal/pagination"
)

var (
	// ErrAttachmentRequired is returned when a saved job is dropped on a
	// forward column. A gate is opened and nothing else changes.
	ErrAttachmentRequired = errors.New("attachment required to move a saved job forward")
	ErrAttachmentMissing  = errors.New("attachment url is empty")
	ErrNoGate             = errors.New("no pending attachment gate for job")
	ErrJobNotFound        = errors.New("job not found")
	ErrUnknownStatus      = errors.New("unknown status")
	ErrInvalidJob         = errors.New("job title and company name are required")
	ErrClosed             = errors.New("board closed")
)

// Backend is the subset of the job API client the board drives.
type Backend interface {
	FetchJobs(ctx context.Context, sess *backend.Session) ([]models.Job, error)
	AddJob(ctx context.Context, sess *backend.Session, details models.JobDetails) ([]models.Job, error)
	EditJob(ctx context.Context, sess *backend.Session, jobID string, details models.JobDetails) ([]models.Job, error)
	UpdateStatus(ctx context.Context, sess *backend.Session, upd backend.StatusUpdate) ([]models.Job, error)
	DeleteJob(ctx context.Context, sess *backend.Session, jobID string) ([]models.Job, error)
}

// Cache keeps the last canonical list per account for warm starts.
type Cache interface {
	LoadJobs(ctx context.Context, email string) ([]models.Job, bool, error)
	SaveJobs(ctx context.Context, email string, jobs []models.Job) error
	Clear(ctx context.Context, email string) error
}

// Options configures a Board. Backend and Session are required.
type Options struct {
	ID        uuid.UUID
	Backend   Backend
	Session   *backend.Session
	Cache     Cache
	Sink      Sink
	Publisher MovePublisher
	PageSize  int
	Now       func() time.Time
	// OnExpired is called, on its own goroutine, once the session has
	// expired.
	OnExpired func(id uuid.UUID)
}

// Board is one session's board.
type Board struct {
	id        uuid.UUID
	store     *Store
	backend   Backend
	sess      *backend.Session
	cache     Cache
	sink      Sink
	pub       MovePublisher
	pageSize  int
	now       func() time.Time
	onExpired func(uuid.UUID)
	log       *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	closed      bool
	wg          sync.WaitGroup
	expireOnce  sync.Once
	unsubscribe func()
}

// New creates an empty board. Call Load to fill it.
func New(opts Options) *Board {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = pagination.DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		id:        opts.ID,
		store:     NewStore(nil),
		backend:   opts.Backend,
		sess:      opts.Session,
		cache:     opts.Cache,
		sink:      opts.Sink,
		pub:       opts.Publisher,
		pageSize:  opts.PageSize,
		now:       opts.Now,
		onExpired: opts.OnExpired,
		log:       logger.Get().Component("board"),
		ctx:       ctx,
		cancel:    cancel,
	}
	b.unsubscribe = b.store.Subscribe(func(prev, next State, a Action) {
		for _, e := range eventsFor(prev, next, a) {
			b.emit(e)
		}
	})
	return b
}

// ID returns the board's session identifier.
func (b *Board) ID() uuid.UUID { return b.id }

// Session returns the identity the board acts as.
func (b *Board) Session() *backend.Session { return b.sess }

// State returns the current snapshot.
func (b *Board) State() State { return b.store.State() }

// Subscribe registers a listener on the underlying store.
func (b *Board) Subscribe(l Listener) func() { return b.store.Subscribe(l) }

// View is the rendered board.
type View struct {
	ID       uuid.UUID    `json:"id"`
	Email    string       `json:"email"`
	Actor    models.Actor `json:"actor"`
	Columns  []Column     `json:"columns"`
	Gates    []Gate       `json:"gates"`
	Stats    Stats        `json:"stats"`
	Version  uint64       `json:"version"`
	PageSize int          `json:"page_size"`
}

// View renders every column with its current page.
func (b *Board) View() View {
	st := b.store.State()
	gates := make([]Gate, 0, len(st.Gates))
	for _, g := range st.Gates {
		gates = append(gates, g)
	}
	slices.SortFunc(gates, func(a, c Gate) int { return a.OpenedAt.Compare(c.OpenedAt) })
	return View{
		ID:       b.id,
		Email:    b.sess.Email,
		Actor:    b.sess.Actor,
		Columns:  st.Columns(b.pageSize),
		Gates:    gates,
		Stats:    st.Stats(),
		Version:  st.Version,
		PageSize: b.pageSize,
	}
}

// Column renders a single column.
func (b *Board) Column(status models.Status) (Column, error) {
	if !status.IsValid() {
		return Column{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return b.store.State().ColumnOf(status, b.pageSize), nil
}

// Load warm-starts from the cache when one is configured, then fetches the
// canonical list. A failed fetch is only fatal when nothing was cached or
// the session expired.
func (b *Board) Load(ctx context.Context) error {
	warm := false
	if b.cache != nil {
		jobs, ok, err := b.cache.LoadJobs(ctx, b.sess.Email)
		switch {
		case err != nil:
			b.log.Warn().Err(err).Str("email", b.sess.Email).Msg("cache load failed")
		case ok:
			b.store.Dispatch(Replace{Jobs: jobs})
			warm = true
			b.log.Debug().Int("jobs", len(jobs)).Str("email", b.sess.Email).Msg("warm start from cache")
		}
	}

	err := b.Refresh(ctx)
	if err == nil || (warm && !errors.Is(err, backend.ErrSessionExpired)) {
		return nil
	}
	return err
}

// Refresh replaces the board with the canonical list.
func (b *Board) Refresh(ctx context.Context) error {
	jobs, err := b.backend.FetchJobs(ctx, b.sess)
	if err != nil {
		b.report("", "Could not load your jobs", err)
		return err
	}
	b.replace(ctx, jobs, uuid.Nil)
	return nil
}

// MoveJob drops a job onto dest. Moving a saved job to a forward column
// opens an attachment gate and returns ErrAttachmentRequired without
// touching the job. Otherwise the move is shown immediately and resolved
// in the background; the returned handle reports how it ended.
func (b *Board) MoveJob(jobID string, dest models.Status) (*Move, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	if !dest.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, dest)
	}
	st := b.store.State()
	job, ok := st.Job(jobID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	from := job.Status()
	if from == dest {
		m := newMove(uuid.Nil, jobID, job.CurrentStatus, job.CurrentStatus)
		m.finish(nil)
		return m, nil
	}

	if from == models.StatusSaved && dest.IsForward() {
		b.store.Dispatch(OpenGate{Gate: Gate{
			JobID:       jobID,
			From:        job.CurrentStatus,
			Destination: dest,
			OpenedAt:    b.now(),
		}})
		return nil, ErrAttachmentRequired
	}

	b.store.Dispatch(CloseGate{JobID: jobID})
	return b.commit(job, dest, nil)
}

// ConfirmAttachment resolves an open gate with the uploaded file's URL and
// runs the held move with the attachment included.
func (b *Board) ConfirmAttachment(jobID, url string) (*Move, error) {
	if b.isClosed() {
		return nil, ErrClosed
	}
	st := b.store.State()
	gate, ok := st.Gates[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoGate, jobID)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrAttachmentMissing
	}
	job, ok := st.Job(jobID)
	if !ok {
		b.store.Dispatch(CloseGate{JobID: jobID})
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	attachments := slices.Clone(job.Attachments)
	if !slices.Contains(attachments, url) {
		attachments = append(attachments, url)
	}
	// closing the gate claims it; a concurrent confirmation gets ErrNoGate
	if _, claimed := b.store.Apply(CloseGate{JobID: jobID}); !claimed {
		return nil, fmt.Errorf("%w: %s", ErrNoGate, jobID)
	}
	return b.commit(job, gate.Destination, attachments)
}

// CancelGate dismisses an open gate, leaving the job where it was.
func (b *Board) CancelGate(jobID string) error {
	if _, ok := b.store.State().Gates[jobID]; !ok {
		return fmt.Errorf("%w: %s", ErrNoGate, jobID)
	}
	b.store.Dispatch(CloseGate{JobID: jobID})
	return nil
}

// SetPage moves a column to page. Pages past the end render empty.
func (b *Board) SetPage(status models.Status, page int) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	b.store.Dispatch(SetPage{Status: status, Page: page})
	return nil
}

// AddJob creates a job. Missing fields are filled the way the dashboard
// always has: a millisecond ID, a saved status and the current time.
func (b *Board) AddJob(ctx context.Context, d models.JobDetails) error {
	if strings.TrimSpace(d.JobTitle) == "" || strings.TrimSpace(d.CompanyName) == "" {
		return ErrInvalidJob
	}
	now := b.now()
	if d.JobID == "" {
		d.JobID = models.NewJobID(now)
	}
	if d.CurrentStatus == "" {
		d.CurrentStatus = models.ComposeStatus(models.StatusSaved, b.sess.Actor)
	} else {
		st, ok := models.StatusOf(d.CurrentStatus)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStatus, d.CurrentStatus)
		}
		job := models.Job{Attachments: d.Attachments}
		if st.IsForward() && !job.HasAttachment() {
			return ErrAttachmentRequired
		}
	}
	if d.DateAdded == "" {
		d.DateAdded = now.In(dates.Zone).Format(time.RFC3339)
	}

	jobs, err := b.backend.AddJob(ctx, b.sess, d)
	if err != nil {
		b.report(d.JobID, "Could not add the job", err)
		return err
	}
	b.replace(ctx, jobs, uuid.Nil)
	return nil
}

// EditJob updates a job's descriptive fields. The status is never changed
// here; use MoveJob.
func (b *Board) EditJob(ctx context.Context, jobID string, d models.JobDetails) error {
	if _, ok := b.store.State().Job(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	d.JobID = jobID
	d.CurrentStatus = ""

	jobs, err := b.backend.EditJob(ctx, b.sess, jobID, d)
	if err != nil {
		b.report(jobID, "Could not save your changes", err)
		return err
	}
	b.replace(ctx, jobs, uuid.Nil)
	return nil
}

// DeleteJob soft-deletes a job.
func (b *Board) DeleteJob(ctx context.Context, jobID string) error {
	if _, ok := b.store.State().Job(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	jobs, err := b.backend.DeleteJob(ctx, b.sess, jobID)
	if err != nil {
		b.report(jobID, "Could not delete the job", err)
		return err
	}
	b.replace(ctx, jobs, uuid.Nil)
	return nil
}

// Close cancels in-flight requests and waits for them. Results that arrive
// after Close are dropped.
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.cancel()
	b.mu.Unlock()

	b.wg.Wait()
	b.unsubscribe()
}

func (b *Board) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Board) commit(job models.Job, dest models.Status, attachments []string) (*Move, error) {
	status := models.ComposeStatus(dest, b.sess.Actor)
	m := newMove(uuid.New(), job.JobID, job.CurrentStatus, status)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.wg.Add(1)
	b.mu.Unlock()

	b.store.Dispatch(Optimistic{
		JobID:       job.JobID,
		Status:      status,
		UpdatedAt:   b.now().In(dates.Zone).Format(time.RFC3339),
		OpID:        m.OpID,
		Attachments: attachments,
	})

	go b.run(m, backend.StatusUpdate{
		JobID:       job.JobID,
		Status:      status,
		Attachments: attachments,
	})
	return m, nil
}

func (b *Board) run(m *Move, upd backend.StatusUpdate) {
	defer b.wg.Done()

	jobs, err := b.backend.UpdateStatus(b.ctx, b.sess, upd)
	if b.ctx.Err() != nil {
		b.log.Debug().Str("job_id", m.JobID).Msg("board closed, dropping move result")
		m.finish(ErrClosed)
		return
	}

	if err != nil {
		b.log.Warn().Err(err).Str("job_id", m.JobID).Str("to", m.To).Msg("move failed, reverting")
		b.store.Dispatch(Revert{JobID: m.JobID, OpID: m.OpID})
		b.store.Dispatch(Settle{JobID: m.JobID, OpID: m.OpID})
		b.report(m.JobID, "Could not update the job status", err)
		b.publish(m, OutcomeReverted, err)
		m.finish(err)
		return
	}

	b.replace(b.ctx, jobs, m.OpID)
	b.publish(m, OutcomeConfirmed, nil)
	m.finish(nil)
}

func (b *Board) replace(ctx context.Context, jobs []models.Job, opID uuid.UUID) {
	b.store.Dispatch(Replace{Jobs: jobs, OpID: opID})
	if b.cache == nil {
		return
	}
	if err := b.cache.SaveJobs(ctx, b.sess.Email, jobs); err != nil {
		b.log.Warn().Err(err).Str("email", b.sess.Email).Msg("cache save failed")
	}
}

// report turns an API failure into a user notification.
func (b *Board) report(jobID, message string, err error) {
	switch {
	case errors.Is(err, context.Canceled) && b.ctx.Err() != nil:
		return
	case errors.Is(err, backend.ErrLimitExceeded):
		b.emit(Event{Type: EventLimitExceeded, JobID: jobID, Message: limitExceededMessage})
	case errors.Is(err, backend.ErrSessionExpired):
		b.expire()
	default:
		b.emit(Event{Type: EventToast, JobID: jobID, Message: message})
	}
}

func (b *Board) expire() {
	b.expireOnce.Do(func() {
		b.log.Info().Str("email", b.sess.Email).Msg("session expired")
		if b.cache != nil {
			if err := b.cache.Clear(context.Background(), b.sess.Email); err != nil {
				b.log.Warn().Err(err).Msg("cache clear failed")
			}
		}
		b.emit(Event{Type: EventSessionExpired, Message: "Your session has expired. Please log in again."})
		if b.onExpired != nil {
			go b.onExpired(b.id)
		}
	})
}

func (b *Board) emit(e Event) {
	if b.sink == nil {
		return
	}
	e.BoardID = b.id
	if e.At.IsZero() {
		e.At = b.now()
	}
	b.sink.Publish(e)
}

func (b *Board) publish(m *Move, outcome string, err error) {
	if b.pub == nil {
		return
	}
	ev := MoveEvent{
		BoardID: b.id,
		OpID:    m.OpID,
		Email:   b.sess.Email,
		Actor:   b.sess.Actor,
		JobID:   m.JobID,
		From:    m.From,
		To:      m.To,
		Outcome: outcome,
		At:      b.now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if perr := b.pub.PublishMove(ctx, ev); perr != nil {
		b.log.Warn().Err(perr).Str("job_id", m.JobID).Msg("publish move event failed")
	}
}
