package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/entities"
	"github.com/mrlokans/txtshelf/internal/textenc"
	"github.com/mrlokans/txtshelf/internal/utils"
)

// ErrEmptyUpload is returned when an ingested file has no bytes.
var ErrEmptyUpload = errors.New("uploaded file is empty")

// ListOptions selects between the stored chapter set and a preview.
// A non-empty Pattern or Dry never writes.
type ListOptions struct {
	Pattern string
	Dry     bool
}

// ListResult is a chapter set plus where it came from.
type ListResult struct {
	File      *entities.TextFile
	Chapters  []chapters.Chapter
	Pattern   string
	Persisted bool
}

// CommitRequest stores either an explicit chapter list or the result of
// running Pattern (the default pattern when both are empty).
type CommitRequest struct {
	Pattern  string
	Chapters []chapters.Chapter
	Replace  bool
}

// IngestRequest is a raw text upload.
type IngestRequest struct {
	BookID   uint
	UserID   uint
	Filename string
	Encoding string
	Data     []byte
}

// ChapterService detects, stores and edits the chapter sets of text files.
type ChapterService struct {
	files          FileStore
	assets         AssetStore
	settings       SettingsStore
	defaultPattern string
	matchTimeout   time.Duration
	scheduler      DetectScheduler
	pruneGrace     time.Duration
}

// DefaultPruneGrace is how long an unreferenced upload survives pruning, so
// an ingest in progress keeps its bytes.
const DefaultPruneGrace = 10 * time.Minute

// NewChapterService creates a ChapterService. defaultPattern is used unless
// the settings store carries an override.
func NewChapterService(files FileStore, assets AssetStore, settings SettingsStore, defaultPattern string, matchTimeout time.Duration) *ChapterService {
	if defaultPattern == "" {
		defaultPattern = chapters.DefaultPattern
	}
	return &ChapterService{
		files:          files,
		assets:         assets,
		settings:       settings,
		defaultPattern: defaultPattern,
		matchTimeout:   matchTimeout,
		pruneGrace:     DefaultPruneGrace,
	}
}

// SetPruneGrace changes the minimum age of an upload before it can be pruned.
func (s *ChapterService) SetPruneGrace(d time.Duration) {
	s.pruneGrace = d
}

// SetScheduler enables background detection after ingest.
func (s *ChapterService) SetScheduler(d DetectScheduler) {
	s.scheduler = d
}

// DefaultPattern returns the pattern used when callers supply none.
func (s *ChapterService) DefaultPattern() string {
	if s.settings == nil {
		return s.defaultPattern
	}
	return s.settings.GetString(entities.SettingKeyChapterPattern, s.defaultPattern)
}

// SetDefaultPattern validates and stores a new default pattern.
func (s *ChapterService) SetDefaultPattern(pattern string) error {
	if err := chapters.ValidatePattern(pattern); err != nil {
		return err
	}
	if s.settings == nil {
		return errors.New("settings store not configured")
	}
	return s.settings.SetSetting(entities.SettingKeyChapterPattern, pattern)
}

// Ingest stores an upload, records its detected encoding and canonical
// length, and queues chapter detection. Re-uploading identical bytes to the
// same book returns the existing file.
func (s *ChapterService) Ingest(req IngestRequest) (*entities.TextFile, error) {
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	filename := utils.SanitizeFilename(req.Filename)
	title := utils.TitleFromFilename(filename)
	book, err := s.files.GetOrCreateBook(req.BookID, req.UserID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve book: %w", err)
	}

	digest, err := s.assets.Put(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	if existing, err := s.files.FindFileByDigest(book.ID, digest); err == nil {
		return existing, nil
	}

	res := textenc.Normalize(req.Data, req.Encoding)
	if res.Lossy {
		log.Printf("[INGEST] %s decoded with losses (%s)", filename, res.Encoding)
	}
	// warm the canonical cache under the detected encoding
	if _, err := s.assets.Canonical(digest, res.Encoding); err != nil {
		return nil, err
	}

	file := &entities.TextFile{
		BookID:         book.ID,
		Filename:       filename,
		Digest:         digest,
		SourceEncoding: res.Encoding,
		Lossy:          res.Lossy,
		Size:           int64(len(req.Data)),
		CharCount:      len([]rune(res.Text)),
	}
	if err := s.files.CreateFile(file); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleDetectChapters(file.ID); err != nil {
			log.Printf("[INGEST] Failed to queue chapter detection for file %d: %v", file.ID, err)
		}
	}
	return file, nil
}

// Book returns a book with the metadata of its files.
func (s *ChapterService) Book(bookID uint) (*entities.Book, error) {
	return s.files.GetBook(bookID)
}

// File returns the metadata of one file.
func (s *ChapterService) File(fileID uint) (*entities.TextFile, error) {
	return s.files.GetFile(fileID)
}

// DeleteFile removes a file and its chapter set. Annotations on the file are
// kept and become unrenderable; the upload goes with the next asset prune.
func (s *ChapterService) DeleteFile(fileID uint) error {
	if _, err := s.files.GetFile(fileID); err != nil {
		return err
	}
	if err := s.files.DeleteFile(fileID); err != nil {
		return fmt.Errorf("failed to delete file %d: %w", fileID, err)
	}
	log.Printf("[CHAPTERS] Deleted file %d", fileID)
	return nil
}

// Text returns a file and its canonical text.
func (s *ChapterService) Text(fileID uint) (*entities.TextFile, string, error) {
	file, err := s.files.GetFile(fileID)
	if err != nil {
		return nil, "", err
	}
	text, err := s.assets.Canonical(file.Digest, file.SourceEncoding)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load text for file %d: %w", fileID, err)
	}
	return file, text, nil
}

// List returns the chapter set of a file. With no pattern and no dry flag
// the stored set is returned, or the default pattern is run and stored.
// Otherwise the pattern (or default) is run and nothing is written.
func (s *ChapterService) List(fileID uint, opts ListOptions) (*ListResult, error) {
	preview := opts.Dry || opts.Pattern != ""

	if !preview {
		file, err := s.files.GetFile(fileID)
		if err != nil {
			return nil, err
		}
		stored, err := s.files.GetChapters(fileID)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			return &ListResult{File: file, Chapters: stored, Pattern: file.ChapterPattern, Persisted: true}, nil
		}
	}

	pattern := opts.Pattern
	if pattern == "" {
		pattern = s.DefaultPattern()
	}
	file, list, err := s.detect(fileID, pattern)
	if err != nil {
		return nil, err
	}
	if preview {
		return &ListResult{File: file, Chapters: list, Pattern: pattern}, nil
	}

	if err := s.files.SaveChapters(fileID, list, false); err != nil {
		if errors.Is(err, files.ErrChaptersExist) {
			// stored concurrently; serve what won
			stored, gerr := s.files.GetChapters(fileID)
			if gerr != nil {
				return nil, gerr
			}
			return &ListResult{File: file, Chapters: stored, Pattern: file.ChapterPattern, Persisted: true}, nil
		}
		return nil, err
	}
	if err := s.files.SetChapterPattern(fileID, pattern); err != nil {
		return nil, err
	}
	file.ChapterPattern = pattern
	log.Printf("[CHAPTERS] Detected %d chapters for file %d", len(list), fileID)
	return &ListResult{File: file, Chapters: list, Pattern: pattern, Persisted: true}, nil
}

// Current returns the stored chapter set, or the default segmentation
// computed in memory when none is stored. It never writes.
func (s *ChapterService) Current(fileID uint) ([]chapters.Chapter, error) {
	stored, err := s.files.GetChapters(fileID)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return stored, nil
	}
	_, list, err := s.detect(fileID, s.DefaultPattern())
	return list, err
}

// EnsureChapters stores the default chapter set if none exists. Used by the
// background detection task.
func (s *ChapterService) EnsureChapters(fileID uint) (int, error) {
	res, err := s.List(fileID, ListOptions{})
	if err != nil {
		return 0, err
	}
	return len(res.Chapters), nil
}

// Commit stores a chapter set. Without Replace an existing set is an error.
func (s *ChapterService) Commit(fileID uint, req CommitRequest) (*ListResult, error) {
	var (
		file    *entities.TextFile
		list    []chapters.Chapter
		pattern string
		err     error
	)

	if req.Chapters != nil {
		file, err = s.files.GetFile(fileID)
		if err != nil {
			return nil, err
		}
		if err := chapters.Validate(req.Chapters, file.CharCount); err != nil {
			return nil, err
		}
		list = append([]chapters.Chapter(nil), req.Chapters...)
		for i := range list {
			if list[i].Title != nil {
				list[i].Title = chapters.CleanTitle(*list[i].Title)
			}
		}
	} else {
		pattern = req.Pattern
		if pattern == "" {
			pattern = s.DefaultPattern()
		}
		file, list, err = s.detect(fileID, pattern)
		if err != nil {
			return nil, err
		}
	}

	if err := s.files.SaveChapters(fileID, list, req.Replace); err != nil {
		return nil, err
	}
	if err := s.files.SetChapterPattern(fileID, pattern); err != nil {
		return nil, err
	}
	file.ChapterPattern = pattern
	log.Printf("[CHAPTERS] Stored %d chapters for file %d (replace=%t)", len(list), fileID, req.Replace)
	return &ListResult{File: file, Chapters: list, Pattern: pattern, Persisted: true}, nil
}

// Content returns one chapter and its text.
func (s *ChapterService) Content(fileID uint, index int) (chapters.Chapter, string, error) {
	res, err := s.List(fileID, ListOptions{})
	if err != nil {
		return chapters.Chapter{}, "", err
	}
	c, err := find(res.Chapters, index)
	if err != nil {
		return chapters.Chapter{}, "", err
	}
	_, text, err := s.Text(fileID)
	if err != nil {
		return chapters.Chapter{}, "", err
	}
	return c, chapters.Slice([]rune(text), c), nil
}

// Rename changes one chapter title.
func (s *ChapterService) Rename(fileID uint, index int, title string) ([]chapters.Chapter, error) {
	res, err := s.List(fileID, ListOptions{})
	if err != nil {
		return nil, err
	}
	list, err := chapters.Rename(res.Chapters, index, title)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateChapters(fileID, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Merge deletes a chapter, folding its span into the neighbour in dir.
// Annotations keep their whole-book offsets and are not rewritten.
func (s *ChapterService) Merge(fileID uint, index int, dir chapters.Direction) ([]chapters.Chapter, error) {
	res, err := s.List(fileID, ListOptions{})
	if err != nil {
		return nil, err
	}
	list, err := chapters.DeleteWithMerge(res.Chapters, index, dir)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateChapters(fileID, list); err != nil {
		return nil, err
	}
	log.Printf("[CHAPTERS] Merged chapter %d of file %d into %s", index, fileID, dir)
	return list, nil
}

// PruneAssets removes stored uploads that no file references.
func (s *ChapterService) PruneAssets() (int, error) {
	digests, err := s.files.ListDigests()
	if err != nil {
		return 0, err
	}
	keep := make(map[string]bool, len(digests))
	for _, d := range digests {
		keep[d] = true
	}
	return s.assets.Prune(keep, time.Now().Add(-s.pruneGrace))
}

func (s *ChapterService) detect(fileID uint, pattern string) (*entities.TextFile, []chapters.Chapter, error) {
	seg, err := chapters.NewSegmenterWithTimeout(pattern, s.matchTimeout)
	if err != nil {
		return nil, nil, err
	}
	file, text, err := s.Text(fileID)
	if err != nil {
		return nil, nil, err
	}
	list, err := seg.Detect(text)
	if err != nil {
		return nil, nil, err
	}
	return file, list, nil
}

func find(list []chapters.Chapter, index int) (chapters.Chapter, error) {
	if index < 0 || index >= len(list) {
		return chapters.Chapter{}, fmt.Errorf("%w: %d", chapters.ErrChapterNotFound, index)
	}
	return list[index], nil
}
