package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/entities"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/offsets"
	"github.com/mrlokans/txtshelf/internal/utils"
)

// ErrFileNotInBook is returned when an annotation references a file of another book.
var ErrFileNotInBook = errors.New("file does not belong to book")

// CreateAnnotationInput is the body of an annotation create request.
type CreateAnnotationInput struct {
	Location string  `json:"location" binding:"required"`
	Color    *string `json:"color"`
	Note     *string `json:"note"`
}

// AnnotationView is an annotation with its chapter recomputed from the
// current chapter set. ChapterIndex is nil for unrenderable annotations.
type AnnotationView struct {
	entities.Annotation
	ChapterIndex *int `json:"chapter_index"`
	Renderable   bool `json:"renderable"`
}

// AnnotationService validates and stores annotations.
type AnnotationService struct {
	store    AnnotationStore
	files    FileStore
	chapters *ChapterService
}

func NewAnnotationService(store AnnotationStore, files FileStore, chapterService *ChapterService) *AnnotationService {
	return &AnnotationService{store: store, files: files, chapters: chapterService}
}

// Create validates the location against the referenced file and stores the
// annotation.
func (s *AnnotationService) Create(bookID, userID uint, in CreateAnnotationInput) (*entities.Annotation, error) {
	loc, err := location.Parse(in.Location)
	if err != nil {
		return nil, err
	}
	txt := loc.TXT

	file, err := s.files.GetFile(uint(txt.FileID))
	if err != nil {
		return nil, err
	}
	if file.BookID != bookID {
		return nil, fmt.Errorf("%w: file %d", ErrFileNotInBook, file.ID)
	}
	if txt.AbsEnd > file.CharCount {
		return nil, fmt.Errorf("%w: range ends at %d past file length %d", location.ErrInvalidLocation, txt.AbsEnd, file.CharCount)
	}

	color, err := normalizeColor(in.Color)
	if err != nil {
		return nil, err
	}

	a := &entities.Annotation{
		UserID:        userID,
		BookID:        bookID,
		FileID:        file.ID,
		Location:      in.Location,
		SelectionText: txt.SelectionText,
		Color:         color,
		Note:          in.Note,
	}
	if err := s.store.Create(a); err != nil {
		return nil, fmt.Errorf("failed to save annotation: %w", err)
	}
	return a, nil
}

// List returns a user's annotations of a book with chapter indices resolved
// through the offset mapper. The stored chapterIndex hint is ignored.
func (s *AnnotationService) List(bookID, userID uint) ([]AnnotationView, error) {
	rows, err := s.store.ListForBook(bookID, userID)
	if err != nil {
		return nil, err
	}

	sets := make(map[int64][]chapters.Chapter)
	out := make([]AnnotationView, 0, len(rows))
	for _, a := range rows {
		view := AnnotationView{Annotation: a}
		loc := location.Decode(a.Location)
		if loc.Renderable() {
			list, ok := sets[loc.TXT.FileID]
			if !ok {
				list = s.chapterSet(uint(loc.TXT.FileID))
				sets[loc.TXT.FileID] = list
			}
			if local, found := offsets.MapAbsoluteToChapter(loc.TXT.AbsStart, loc.TXT.AbsEnd, list); found {
				idx := local.ChapterIndex
				view.ChapterIndex = &idx
				view.Renderable = true
			}
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *AnnotationService) chapterSet(fileID uint) []chapters.Chapter {
	list, err := s.chapters.Current(fileID)
	if err != nil {
		return nil
	}
	return list
}

// Update changes color and note.
func (s *AnnotationService) Update(id, userID uint, p annotations.Patch) (*entities.Annotation, error) {
	if _, err := s.owned(id, userID); err != nil {
		return nil, err
	}
	color, err := normalizeColor(p.Color)
	if err != nil {
		return nil, err
	}
	if p.Color != nil && color == nil {
		empty := ""
		color = &empty
	}
	p.Color = color
	return s.store.Update(id, p)
}

// Delete removes an annotation.
func (s *AnnotationService) Delete(id, userID uint) error {
	if _, err := s.owned(id, userID); err != nil {
		return err
	}
	return s.store.Delete(id)
}

// normalizeColor canonicalizes an optional color. A blank color clears it.
func normalizeColor(c *string) (*string, error) {
	if c == nil {
		return nil, nil
	}
	norm, err := utils.NormalizeColor(*c)
	if err != nil || norm == "" {
		return nil, err
	}
	return &norm, nil
}

func (s *AnnotationService) owned(id, userID uint) (*entities.Annotation, error) {
	a, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return a, nil
}
