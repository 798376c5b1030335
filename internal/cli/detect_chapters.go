package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/txtshelf/internal/chapters"
	"github.com/mrlokans/txtshelf/internal/textenc"
)

// DetectChaptersCommand previews chapter detection on a local text file
// without touching any database.
type DetectChaptersCommand struct {
	FilePath     string
	Pattern      string
	Encoding     string
	MatchTimeout time.Duration
	JSON         bool

	Out io.Writer
}

func NewDetectChaptersCommand() *DetectChaptersCommand {
	return &DetectChaptersCommand{Out: os.Stdout}
}

func (cmd *DetectChaptersCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("detect-chapters", flag.ContinueOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a text file (required)")
	fs.StringVar(&cmd.Pattern, "pattern", "", "Chapter heading pattern, bare or /re/flags (default: built-in pattern)")
	fs.StringVar(&cmd.Encoding, "encoding", "", "Declared source encoding, e.g. gbk or utf-16le (default: detect)")
	fs.DurationVar(&cmd.MatchTimeout, "timeout", chapters.DefaultMatchTimeout, "Pattern match timeout")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the chapter list as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s detect-chapters -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Decode a text file and print the chapters a pattern would produce.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s detect-chapters -file novel.txt\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s detect-chapters -file novel.txt -pattern '^Part [0-9]+' -json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *DetectChaptersCommand) Run() error {
	raw, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	res := textenc.Normalize(raw, cmd.Encoding)

	seg, err := chapters.NewSegmenterWithTimeout(cmd.Pattern, cmd.MatchTimeout)
	if err != nil {
		return err
	}
	list, err := seg.Detect(res.Text)
	if err != nil {
		return fmt.Errorf("failed to detect chapters: %w", err)
	}

	if cmd.JSON {
		enc := json.NewEncoder(cmd.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	fmt.Fprintf(cmd.Out, "File: %s\n", cmd.FilePath)
	fmt.Fprintf(cmd.Out, "Encoding: %s", res.Encoding)
	if res.Lossy {
		fmt.Fprintf(cmd.Out, " (lossy)")
	}
	fmt.Fprintf(cmd.Out, "\nCharacters: %d\n", len([]rune(res.Text)))
	fmt.Fprintf(cmd.Out, "Chapters: %d\n\n", len(list))

	for _, ch := range list {
		title := ch.TitleOrEmpty()
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(cmd.Out, "%4d  %8d  %8d  %s\n", ch.Index, ch.Offset, ch.Length, title)
	}
	return nil
}
