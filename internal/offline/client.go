package offline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/txtshelf/internal/location"
)

// ReplayReport summarizes one pass over the mutation log.
type ReplayReport struct {
	Applied int  `json:"applied"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
	Offline bool `json:"offline"`
}

// Client applies annotation changes locally first and delivers them to the
// server through the mutation log.
type Client struct {
	store  Store
	remote Remote

	// AutoFlush replays the log after every local change.
	AutoFlush bool

	now func() time.Time

	mu       sync.Mutex // log and local records
	replayMu sync.Mutex // one replay at a time
	seq      uint64
}

// NewClient creates a Client. remote may be nil for a purely local reader.
func NewClient(store Store, remote Remote) *Client {
	return &Client{
		store:     store,
		remote:    remote,
		AutoFlush: true,
		now:       time.Now,
	}
}

// Create stores a local annotation under a negative temporary id and queues
// its creation on the server. The location must be a valid txt location.
func (c *Client) Create(ctx context.Context, bookID uint, req CreateRequest) (Annotation, error) {
	loc, err := location.Parse(req.Location)
	if err != nil {
		return Annotation{}, err
	}

	c.mu.Lock()
	id, err := c.nextTempID(ctx)
	if err != nil {
		c.mu.Unlock()
		return Annotation{}, err
	}
	a := Annotation{
		ID:            id,
		BookID:        bookID,
		FileID:        uint(loc.TXT.FileID),
		Location:      req.Location,
		SelectionText: loc.TXT.SelectionText,
		Color:         req.Color,
		Note:          req.Note,
		Pending:       true,
		UpdatedAt:     c.now(),
	}
	if err := putJSON(ctx, c.store, annotationKey(bookID, id), a); err != nil {
		c.mu.Unlock()
		return Annotation{}, err
	}
	payload := req
	err = c.enqueue(ctx, Mutation{Op: OpCreate, BookID: bookID, AnnotationID: id, Create: &payload})
	c.mu.Unlock()
	if err != nil {
		return Annotation{}, err
	}

	c.flush(ctx)
	return c.current(ctx, bookID, a)
}

// Update changes color or note. Updates of an annotation whose create is
// still queued are folded into that create.
func (c *Client) Update(ctx context.Context, bookID uint, id int64, p Patch) (Annotation, error) {
	c.mu.Lock()
	id = c.resolve(ctx, id)

	var a Annotation
	err := getJSON(ctx, c.store, annotationKey(bookID, id), &a)
	switch {
	case err == nil:
		if p.Color != nil {
			a.Color = p.Color
		}
		if p.Note != nil {
			a.Note = p.Note
		}
		a.UpdatedAt = c.now()
		if err := putJSON(ctx, c.store, annotationKey(bookID, id), a); err != nil {
			c.mu.Unlock()
			return Annotation{}, err
		}
	case errors.Is(err, ErrNotFound):
		a = Annotation{ID: id, BookID: bookID, Color: p.Color, Note: p.Note}
	default:
		c.mu.Unlock()
		return Annotation{}, err
	}

	if id < 0 {
		err = c.foldIntoCreate(ctx, id, p)
	} else {
		patch := p
		err = c.enqueue(ctx, Mutation{Op: OpUpdate, BookID: bookID, AnnotationID: id, Patch: &patch})
	}
	c.mu.Unlock()
	if err != nil {
		return Annotation{}, err
	}

	c.flush(ctx)
	return c.current(ctx, bookID, a)
}

// Delete removes an annotation. Deleting an annotation whose create is still
// queued cancels the create and never reaches the server.
func (c *Client) Delete(ctx context.Context, bookID uint, id int64) error {
	c.mu.Lock()
	id = c.resolve(ctx, id)

	if err := c.store.Delete(ctx, annotationKey(bookID, id)); err != nil {
		c.mu.Unlock()
		return err
	}

	var err error
	if id < 0 {
		err = c.cancelPending(ctx, id)
	} else {
		err = c.enqueue(ctx, Mutation{Op: OpDelete, BookID: bookID, AnnotationID: id})
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if id >= 0 {
		c.flush(ctx)
	}
	return nil
}

// Annotations returns the local annotations of a book: server-known ones by
// id, then pending ones in creation order.
func (c *Client) Annotations(ctx context.Context, bookID uint) ([]Annotation, error) {
	keys, err := c.store.List(ctx, annotationBookPrefix(bookID))
	if err != nil {
		return nil, err
	}
	out := make([]Annotation, 0, len(keys))
	for _, k := range keys {
		var a Annotation
		if err := getJSON(ctx, c.store, k, &a); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if (a < 0) != (b < 0) {
			return a > 0
		}
		if a < 0 {
			return a > b
		}
		return a < b
	})
	return out, nil
}

// RefreshAnnotations replaces the local copies of a book's annotations with
// the server's, keeping everything that still has queued changes. Offline it
// returns the local copies.
func (c *Client) RefreshAnnotations(ctx context.Context, bookID uint) ([]Annotation, error) {
	if c.remote == nil {
		return c.Annotations(ctx, bookID)
	}
	remote, err := c.remote.ListAnnotations(ctx, bookID)
	if errors.Is(err, ErrUnavailable) {
		return c.Annotations(ctx, bookID)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	err = c.mergeRemote(ctx, bookID, remote)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Annotations(ctx, bookID)
}

func (c *Client) mergeRemote(ctx context.Context, bookID uint, remote []Annotation) error {
	muts, err := loadMutations(ctx, c.store)
	if err != nil {
		return err
	}
	dirty := make(map[int64]bool)
	for _, m := range muts {
		if m.Status == StatusPending && m.BookID == bookID {
			dirty[m.AnnotationID] = true
		}
	}

	keep := make(map[string]bool, len(remote))
	for _, a := range remote {
		key := annotationKey(bookID, a.ID)
		keep[key] = true
		if dirty[a.ID] {
			continue
		}
		a.BookID = bookID
		a.Pending = false
		if err := putJSON(ctx, c.store, key, a); err != nil {
			return err
		}
	}

	keys, err := c.store.List(ctx, annotationBookPrefix(bookID))
	if err != nil {
		return err
	}
	for _, k := range keys {
		if keep[k] {
			continue
		}
		var a Annotation
		if err := getJSON(ctx, c.store, k, &a); err != nil {
			continue
		}
		if a.ID < 0 || dirty[a.ID] {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Mutations returns the whole log in replay order, abandoned entries included.
func (c *Client) Mutations(ctx context.Context) ([]Mutation, error) {
	return loadMutations(ctx, c.store)
}

// Pending returns the mutations still waiting for delivery.
func (c *Client) Pending(ctx context.Context) ([]Mutation, error) {
	all, err := loadMutations(ctx, c.store)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, m := range all {
		if m.Status == StatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

// Abandon takes a mutation out of replay. It stays in the log for inspection.
func (c *Client) Abandon(ctx context.Context, mutationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	muts, err := loadMutations(ctx, c.store)
	if err != nil {
		return err
	}
	for _, m := range muts {
		if m.ID != mutationID {
			continue
		}
		m.Status = StatusAbandoned
		m.UpdatedAt = c.now()
		if err := putJSON(ctx, c.store, m.Key, m); err != nil {
			return err
		}
		log.Printf("[REPLAY] Abandoned %s of annotation %d (%s)", m.Op, m.AnnotationID, m.ID)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMutationNotFound, mutationID)
}

// ReplayIfOnline replays the log when there is something to deliver and the
// server answers a ping.
func (c *Client) ReplayIfOnline(ctx context.Context) (ReplayReport, error) {
	if c.remote == nil {
		return ReplayReport{Offline: true}, nil
	}
	pending, err := c.Pending(ctx)
	if err != nil {
		return ReplayReport{}, err
	}
	if len(pending) == 0 {
		return ReplayReport{}, nil
	}
	if err := c.remote.Ping(ctx); err != nil {
		log.Printf("[REPLAY] Server unreachable, %d mutations stay queued: %v", len(pending), err)
		return ReplayReport{Offline: true}, nil
	}
	return c.Replay(ctx)
}

// Replay delivers pending mutations in enqueue order. A failed mutation stays
// queued with its error recorded, and later mutations of the same annotation
// wait for it; mutations of other annotations still run. The pass stops at
// the first connectivity failure.
func (c *Client) Replay(ctx context.Context) (ReplayReport, error) {
	var report ReplayReport
	if c.remote == nil {
		report.Offline = true
		return report, nil
	}

	c.replayMu.Lock()
	defer c.replayMu.Unlock()

	keys, err := c.store.List(ctx, mutationPrefix)
	if err != nil {
		return report, fmt.Errorf("list mutations: %w", err)
	}

	blocked := make(map[int64]bool)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		stop, err := c.replayOne(ctx, key, blocked, &report)
		if err != nil {
			return report, err
		}
		if stop {
			report.Offline = true
			break
		}
	}

	if report.Applied > 0 || report.Failed > 0 {
		log.Printf("[REPLAY] Applied %d, failed %d, skipped %d", report.Applied, report.Failed, report.Skipped)
	}
	return report, nil
}

// replayOne delivers the mutation stored under key. It holds c.mu for the
// round trip so local edits cannot race the delivery.
func (c *Client) replayOne(ctx context.Context, key string, blocked map[int64]bool, report *ReplayReport) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var m Mutation
	if err := getJSON(ctx, c.store, key, &m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil // cancelled meanwhile
		}
		return false, err
	}
	m.Key = key
	if m.Status != StatusPending {
		return false, nil
	}
	if blocked[m.AnnotationID] {
		report.Skipped++
		return false, nil
	}

	err := c.apply(ctx, &m)
	if err == nil {
		report.Applied++
		return false, c.store.Delete(ctx, key)
	}

	m.Attempts++
	m.LastError = err.Error()
	m.UpdatedAt = c.now()
	if perr := putJSON(ctx, c.store, key, m); perr != nil {
		return false, perr
	}

	if errors.Is(err, ErrUnavailable) {
		return true, nil
	}
	log.Printf("[REPLAY] %s of annotation %d failed (attempt %d): %v", m.Op, m.AnnotationID, m.Attempts, err)
	blocked[m.AnnotationID] = true
	report.Failed++
	return false, nil
}

func (c *Client) apply(ctx context.Context, m *Mutation) error {
	switch m.Op {
	case OpCreate:
		if m.Create == nil {
			return fmt.Errorf("create mutation %s has no payload", m.ID)
		}
		serverID, err := c.remote.CreateAnnotation(ctx, m.BookID, *m.Create)
		if err != nil {
			return err
		}
		return c.adopt(ctx, m.BookID, m.AnnotationID, serverID)
	case OpUpdate:
		if m.AnnotationID < 0 {
			return fmt.Errorf("annotation %d was never created on the server", m.AnnotationID)
		}
		if m.Patch == nil {
			return nil
		}
		return c.remote.UpdateAnnotation(ctx, m.AnnotationID, *m.Patch)
	case OpDelete:
		err := c.remote.DeleteAnnotation(ctx, m.AnnotationID)
		if errors.Is(err, ErrGone) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown mutation op %q", m.Op)
	}
}

// adopt rewrites a temporary id to the id the server assigned: the local
// record moves, an alias is kept for callers still holding the temporary id,
// and queued mutations are pointed at the new id.
func (c *Client) adopt(ctx context.Context, bookID uint, tempID, serverID int64) error {
	if err := putJSON(ctx, c.store, aliasKey(tempID), serverID); err != nil {
		return err
	}

	var a Annotation
	err := getJSON(ctx, c.store, annotationKey(bookID, tempID), &a)
	if err == nil {
		a.ID = serverID
		a.Pending = false
		if err := putJSON(ctx, c.store, annotationKey(bookID, serverID), a); err != nil {
			return err
		}
		if err := c.store.Delete(ctx, annotationKey(bookID, tempID)); err != nil {
			return err
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	muts, err := loadMutations(ctx, c.store)
	if err != nil {
		return err
	}
	for _, m := range muts {
		if m.AnnotationID != tempID || m.Op == OpCreate {
			continue
		}
		m.AnnotationID = serverID
		if err := putJSON(ctx, c.store, m.Key, m); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps a temporary id to its server id once the create was applied.
func (c *Client) resolve(ctx context.Context, id int64) int64 {
	if id >= 0 {
		return id
	}
	var serverID int64
	if err := getJSON(ctx, c.store, aliasKey(id), &serverID); err != nil {
		return id
	}
	return serverID
}

// current reloads a after a flush, following a temporary id to its server id.
func (c *Client) current(ctx context.Context, bookID uint, a Annotation) (Annotation, error) {
	id := c.resolve(ctx, a.ID)
	var latest Annotation
	err := getJSON(ctx, c.store, annotationKey(bookID, id), &latest)
	if errors.Is(err, ErrNotFound) {
		return a, nil
	}
	if err != nil {
		return Annotation{}, err
	}
	return latest, nil
}

func (c *Client) foldIntoCreate(ctx context.Context, id int64, p Patch) error {
	muts, err := loadMutations(ctx, c.store)
	if err != nil {
		return err
	}
	for _, m := range muts {
		if m.Op != OpCreate || m.AnnotationID != id || m.Status != StatusPending {
			continue
		}
		p.applyTo(m.Create)
		m.UpdatedAt = c.now()
		return putJSON(ctx, c.store, m.Key, m)
	}
	return fmt.Errorf("%w: no queued create for annotation %d", ErrMutationNotFound, id)
}

// cancelPending drops every queued mutation of a never-delivered annotation.
func (c *Client) cancelPending(ctx context.Context, id int64) error {
	muts, err := loadMutations(ctx, c.store)
	if err != nil {
		return err
	}
	for _, m := range muts {
		if m.AnnotationID != id || m.Status != StatusPending {
			continue
		}
		if err := c.store.Delete(ctx, m.Key); err != nil {
			return err
		}
	}
	return nil
}

// enqueue appends m to the log. Callers hold c.mu.
func (c *Client) enqueue(ctx context.Context, m Mutation) error {
	now := c.now()
	c.seq++
	m.ID = uuid.NewString()
	m.Status = StatusPending
	m.EnqueuedAt = now
	m.UpdatedAt = now
	return putJSON(ctx, c.store, mutationKey(now, c.seq), m)
}

// nextTempID allocates the next negative id. Callers hold c.mu.
func (c *Client) nextTempID(ctx context.Context) (int64, error) {
	var last int64
	if err := getJSON(ctx, c.store, tempIDKey, &last); err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	next := last - 1
	if err := putJSON(ctx, c.store, tempIDKey, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *Client) flush(ctx context.Context) {
	if !c.AutoFlush || c.remote == nil {
		return
	}
	if _, err := c.Replay(ctx); err != nil {
		log.Printf("[REPLAY] Replay after local change failed: %v", err)
	}
}
