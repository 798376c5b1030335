// Command generate_demo creates a demo database with sample texts and highlights.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db] [-assets path/to/assets]
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mrlokans/txtshelf/internal/assets"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/database"
	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/database/settings"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/services"
)

const (
	defaultDemoDatabasePath = "./demo/demo.db"
	defaultDemoAssetsPath   = "./demo/assets"
)

type demoBook struct {
	Filename   string
	Text       string
	GBK        bool
	Highlights []string
}

func getDemoBooks() []demoBook {
	return []demoBook{
		{
			Filename: "A Tale of Two Cities.txt",
			Text: strings.Join([]string{
				"A TALE OF TWO CITIES\nby Charles Dickens\n\n",
				"Chapter I\nThe Period\n\nIt was the best of times, it was the worst of times, it was the age of wisdom, it was the age of foolishness.\n\n",
				"Chapter II\nThe Mail\n\nIt was the Dover road that lay, on a Friday night late in November, before the first of the persons with whom this history has business.\n\n",
				"Chapter III\nThe Night Shadows\n\nA wonderful fact to reflect upon, that every human creature is constituted to be that profound secret and mystery to every other.\n",
			}, ""),
			Highlights: []string{
				"It was the best of times, it was the worst of times",
				"every human creature is constituted to be that profound secret and mystery to every other",
			},
		},
		{
			Filename: "论语.txt",
			GBK:      true,
			Text: strings.Join([]string{
				"论语\n\n",
				"第一章 学而\n子曰：学而时习之，不亦说乎？有朋自远方来，不亦乐乎？\n\n",
				"第二章 为政\n子曰：为政以德，譬如北辰，居其所而众星共之。\n\n",
				"第三章 八佾\n子曰：人而不仁，如礼何？人而不仁，如乐何？\n",
			}, ""),
			Highlights: []string{
				"有朋自远方来，不亦乐乎",
				"为政以德",
			},
		},
	}
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	assetsPath := flag.String("assets", defaultDemoAssetsPath, "path to the demo asset directory")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.RemoveAll(*assetsPath); err != nil {
		log.Fatalf("Failed to remove existing demo assets: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	store, err := assets.NewStore(*assetsPath)
	if err != nil {
		log.Fatalf("Failed to create asset store: %v", err)
	}

	filesRepo := files.NewRepository(db.DB)
	chapterService := services.NewChapterService(filesRepo, store, settings.NewRepository(db.DB), "", chapters.DefaultMatchTimeout)
	annotationService := services.NewAnnotationService(annotations.NewRepository(db.DB), filesRepo, chapterService)

	for _, book := range getDemoBooks() {
		data := []byte(book.Text)
		if book.GBK {
			data, err = simplifiedchinese.GBK.NewEncoder().Bytes(data)
			if err != nil {
				log.Printf("Failed to encode %s: %v", book.Filename, err)
				continue
			}
		}

		file, err := chapterService.Ingest(services.IngestRequest{Filename: book.Filename, Data: data})
		if err != nil {
			log.Printf("Failed to ingest %s: %v", book.Filename, err)
			continue
		}
		res, err := chapterService.Commit(file.ID, services.CommitRequest{Replace: true})
		if err != nil {
			log.Printf("Failed to detect chapters of %s: %v", book.Filename, err)
			continue
		}

		saved := 0
		for _, quote := range book.Highlights {
			if addHighlight(annotationService, file.BookID, file.ID, book.Text, quote) {
				saved++
			}
		}
		log.Printf("Saved: %s (%s, %d chapters, %d highlights)", book.Filename, file.SourceEncoding, len(res.Chapters), saved)
	}

	log.Println("Demo database generated successfully!")
}

func addHighlight(svc *services.AnnotationService, bookID, fileID uint, text, quote string) bool {
	byteIdx := strings.Index(text, quote)
	if byteIdx < 0 {
		log.Printf("Quote not found: %q", quote)
		return false
	}
	start := len([]rune(text[:byteIdx]))

	raw, err := location.EncodeTXT(location.TXT{
		FileID:        int64(fileID),
		AbsStart:      start,
		AbsEnd:        start + len([]rune(quote)),
		SelectionText: quote,
	})
	if err != nil {
		log.Printf("Failed to encode location: %v", err)
		return false
	}

	color := "yellow"
	if _, err := svc.Create(bookID, 0, services.CreateAnnotationInput{Location: raw, Color: &color}); err != nil {
		log.Printf("Failed to save highlight: %v", err)
		return false
	}
	return true
}
