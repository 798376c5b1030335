package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Op is the kind of annotation change a mutation carries.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Status is the lifecycle state of a mutation: pending until it is either
// applied on the server or abandoned by an operator.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApplied   Status = "applied"
	StatusAbandoned Status = "abandoned"
)

// ErrMutationNotFound is returned when no logged mutation has the given id.
var ErrMutationNotFound = errors.New("mutation not found")

// CreateRequest is the payload of a create mutation.
type CreateRequest struct {
	Location string  `json:"location"`
	Color    *string `json:"color,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// Patch is the payload of an update mutation. Nil fields are left unchanged.
type Patch struct {
	Color *string `json:"color,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// applyTo folds p into a create payload.
func (p Patch) applyTo(req *CreateRequest) {
	if p.Color != nil {
		req.Color = p.Color
	}
	if p.Note != nil {
		req.Note = p.Note
	}
}

// Mutation is one entry of the replay log. AnnotationID is negative while it
// refers to an annotation the server has not assigned an id to yet.
type Mutation struct {
	ID           string         `json:"id"`
	Key          string         `json:"-"`
	Op           Op             `json:"op"`
	BookID       uint           `json:"book_id"`
	AnnotationID int64          `json:"annotation_id"`
	Create       *CreateRequest `json:"create,omitempty"`
	Patch        *Patch         `json:"patch,omitempty"`
	Status       Status         `json:"status"`
	Attempts     int            `json:"attempts"`
	LastError    string         `json:"last_error,omitempty"`
	EnqueuedAt   time.Time      `json:"enqueued_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

const (
	mutationPrefix   = "mutation/"
	annotationPrefix = "annotation/"
	aliasPrefix      = "alias/"
	chaptersPrefix   = "chapters/"
	contentPrefix    = "content/"
	tempIDKey        = "meta/temp-id"
)

// mutationKey orders the log by enqueue time. seq breaks ties between
// mutations enqueued within the same clock tick.
func mutationKey(t time.Time, seq uint64) string {
	return fmt.Sprintf("%s%020d/%06d", mutationPrefix, t.UnixNano(), seq%1000000)
}

func annotationKey(bookID uint, id int64) string {
	return fmt.Sprintf("%s%d/%d", annotationPrefix, bookID, id)
}

func annotationBookPrefix(bookID uint) string {
	return fmt.Sprintf("%s%d/", annotationPrefix, bookID)
}

func aliasKey(tempID int64) string {
	return aliasPrefix + strconv.FormatInt(tempID, 10)
}

func chaptersKey(fileID uint) string {
	return fmt.Sprintf("%s%d", chaptersPrefix, fileID)
}

func contentFilePrefix(fileID uint) string {
	return fmt.Sprintf("%s%d/", contentPrefix, fileID)
}

func contentKey(fileID uint, index int) string {
	return contentFilePrefix(fileID) + strconv.Itoa(index)
}

func getJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func putJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}

// loadMutations reads the whole log in replay order.
func loadMutations(ctx context.Context, s Store) ([]Mutation, error) {
	keys, err := s.List(ctx, mutationPrefix)
	if err != nil {
		return nil, fmt.Errorf("list mutations: %w", err)
	}
	out := make([]Mutation, 0, len(keys))
	for _, k := range keys {
		var m Mutation
		if err := getJSON(ctx, s, k, &m); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		m.Key = k
		out = append(out, m)
	}
	return out, nil
}
