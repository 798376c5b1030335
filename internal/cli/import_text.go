package cli

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mrlokans/txtshelf/internal/assets"
	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/config"
	"github.com/mrlokans/txtshelf/internal/database"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/database/settings"
	"github.com/mrlokans/txtshelf/internal/services"
)

// ImportTextCommand ingests a local text file into the database and stores
// its chapter set.
type ImportTextCommand struct {
	FilePath     string
	DatabasePath string
	AssetsPath   string
	BookID       uint
	Encoding     string
	Pattern      string
	DryRun       bool

	Out io.Writer
}

func NewImportTextCommand() *ImportTextCommand {
	return &ImportTextCommand{Out: os.Stdout}
}

func (cmd *ImportTextCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-text", flag.ContinueOnError)

	var bookID uint64
	fs.StringVar(&cmd.FilePath, "file", "", "Path to a text file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")
	fs.StringVar(&cmd.AssetsPath, "assets", config.DefaultAssetsPath, "Directory holding uploaded files")
	fs.Uint64Var(&bookID, "book", 0, "Attach to an existing book (default: create one from the file name)")
	fs.StringVar(&cmd.Encoding, "encoding", "", "Declared source encoding (default: detect)")
	fs.StringVar(&cmd.Pattern, "pattern", "", "Chapter heading pattern (default: configured pattern)")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show the detected chapters without storing them")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-text -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Store a text file and its chapters in the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	cmd.BookID = uint(bookID)
	return nil
}

func (cmd *ImportTextCommand) Run() error {
	data, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if cmd.DryRun {
		preview := &DetectChaptersCommand{
			FilePath: cmd.FilePath,
			Pattern:  cmd.Pattern,
			Encoding: cmd.Encoding,
			Out:      cmd.Out,
		}
		fmt.Fprintln(cmd.Out, "DRY RUN MODE - No changes will be made")
		return preview.Run()
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	store, err := assets.NewStore(cmd.AssetsPath)
	if err != nil {
		return fmt.Errorf("failed to initialize asset storage: %w", err)
	}

	chapterService := services.NewChapterService(files.NewRepository(db.DB), store, settings.NewRepository(db.DB), "", chapters.DefaultMatchTimeout)

	file, err := chapterService.Ingest(services.IngestRequest{
		BookID:   cmd.BookID,
		Filename: cmd.FilePath,
		Encoding: cmd.Encoding,
		Data:     data,
	})
	if err != nil {
		return err
	}

	res, err := chapterService.Commit(file.ID, services.CommitRequest{Pattern: cmd.Pattern, Replace: true})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Imported %s as file %d of book %d\n", file.Filename, file.ID, file.BookID)
	fmt.Fprintf(cmd.Out, "Encoding: %s, %d characters, %d chapters\n", file.SourceEncoding, file.CharCount, len(res.Chapters))
	return nil
}
