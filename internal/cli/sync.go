package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/txtshelf/internal/apiclient"
	"github.com/mrlokans/txtshelf/internal/config"
	"github.com/mrlokans/txtshelf/internal/database"
	"github.com/mrlokans/txtshelf/internal/location"
	"github.com/mrlokans/txtshelf/internal/offline"
	"github.com/mrlokans/txtshelf/internal/scheduler"
)

// Sync actions
const (
	SyncActionStatus   = "status"
	SyncActionReplay   = "replay"
	SyncActionAbandon  = "abandon"
	SyncActionPrefetch = "prefetch"
	SyncActionWatch    = "watch"
	SyncActionAnnotate = "annotate"
)

// SyncCommand inspects and drains the reader-side mutation queue.
type SyncCommand struct {
	Action       string
	Backend      string
	DatabasePath string
	RedisURL     string
	RedisPrefix  string
	ServerURL    string
	Timeout      time.Duration
	Schedule     string
	MutationID   string
	FileID       uint
	BookID       uint
	Start        int
	End          int
	Selection    string
	Color        string
	JSON         bool

	Out io.Writer

	// store overrides Backend when set.
	store offline.Store
}

// NewSyncCommand creates the command with defaults taken from the environment.
func NewSyncCommand(cfg *config.Config) *SyncCommand {
	return &SyncCommand{
		Backend:      cfg.Offline.Backend,
		DatabasePath: cfg.Offline.DatabasePath,
		RedisURL:     cfg.Redis.URL,
		RedisPrefix:  cfg.Redis.Prefix,
		ServerURL:    cfg.Offline.ServerURL,
		Timeout:      cfg.Offline.RequestTimeout,
		Schedule:     cfg.Offline.ReplaySchedule,
		Out:          os.Stdout,
	}
}

func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)

	var fileID, bookID uint64
	fs.StringVar(&cmd.Backend, "backend", cmd.Backend, "Offline store backend: sql or redis")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.DatabasePath, "Offline database path (sql backend)")
	fs.StringVar(&cmd.RedisURL, "redis", cmd.RedisURL, "Redis URL (redis backend)")
	fs.StringVar(&cmd.RedisPrefix, "prefix", cmd.RedisPrefix, "Redis key prefix (redis backend)")
	fs.StringVar(&cmd.ServerURL, "server", cmd.ServerURL, "Server base URL")
	fs.DurationVar(&cmd.Timeout, "timeout", cmd.Timeout, "Request timeout")
	fs.StringVar(&cmd.Schedule, "schedule", cmd.Schedule, "Replay schedule for watch (cron format)")
	fs.StringVar(&cmd.MutationID, "id", "", "Mutation id (abandon)")
	fs.Uint64Var(&fileID, "file", 0, "File id (prefetch, annotate)")
	fs.Uint64Var(&bookID, "book", 0, "Book id (annotate)")
	fs.IntVar(&cmd.Start, "start", 0, "Whole-book start offset in characters (annotate)")
	fs.IntVar(&cmd.End, "end", 0, "Whole-book end offset in characters, exclusive (annotate)")
	fs.StringVar(&cmd.Selection, "text", "", "Selected text (annotate)")
	fs.StringVar(&cmd.Color, "color", "", "Highlight color (annotate)")
	fs.BoolVar(&cmd.JSON, "json", false, "Print results as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync <status|replay|abandon|prefetch|annotate|watch> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inspect and deliver annotation changes made while offline.\n\n")
		fmt.Fprintf(os.Stderr, "Actions:\n")
		fmt.Fprintf(os.Stderr, "  status    List queued mutations\n")
		fmt.Fprintf(os.Stderr, "  replay    Deliver queued mutations once\n")
		fmt.Fprintf(os.Stderr, "  abandon   Stop retrying a mutation (-id)\n")
		fmt.Fprintf(os.Stderr, "  prefetch  Cache the chapters of a file for offline reading (-file)\n")
		fmt.Fprintf(os.Stderr, "  annotate  Create a highlight, queued if the server is unreachable\n")
		fmt.Fprintf(os.Stderr, "  watch     Replay on a schedule until interrupted\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("action is required")
	}
	cmd.Action = args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cmd.FileID = uint(fileID)
	cmd.BookID = uint(bookID)

	switch cmd.Action {
	case SyncActionStatus, SyncActionReplay, SyncActionWatch:
	case SyncActionAbandon:
		if cmd.MutationID == "" {
			return fmt.Errorf("required flag -id not provided")
		}
	case SyncActionPrefetch:
		if cmd.FileID == 0 {
			return fmt.Errorf("required flag -file not provided")
		}
	case SyncActionAnnotate:
		if cmd.FileID == 0 || cmd.BookID == 0 {
			return fmt.Errorf("required flags -book and -file not provided")
		}
	default:
		fs.Usage()
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
	return nil
}

func (cmd *SyncCommand) Run() error {
	store, closeStore, err := cmd.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	client := offline.NewClient(store, apiclient.NewClient(cmd.ServerURL, cmd.Timeout))
	client.AutoFlush = false

	ctx := context.Background()

	switch cmd.Action {
	case SyncActionStatus:
		return cmd.status(ctx, client)
	case SyncActionReplay:
		report, err := client.ReplayIfOnline(ctx)
		if err != nil {
			return err
		}
		return cmd.printReport(report)
	case SyncActionAbandon:
		if err := client.Abandon(ctx, cmd.MutationID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.Out, "Abandoned mutation %s\n", cmd.MutationID)
		return nil
	case SyncActionPrefetch:
		n, err := client.Prefetch(ctx, cmd.FileID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Out, "Cached %d chapters of file %d\n", n, cmd.FileID)
		return nil
	case SyncActionAnnotate:
		client.AutoFlush = true
		return cmd.annotate(ctx, client)
	case SyncActionWatch:
		return cmd.watch(client)
	}
	return fmt.Errorf("unknown action: %s", cmd.Action)
}

func (cmd *SyncCommand) openStore() (offline.Store, func(), error) {
	if cmd.store != nil {
		return cmd.store, func() {}, nil
	}

	switch cmd.Backend {
	case config.OfflineBackendSQL:
		db, err := database.NewOfflineDatabase(cmd.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := offline.NewSQLStore(db.DB)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing offline database: %v", err)
			}
		}, nil
	case config.OfflineBackendRedis:
		store, err := offline.NewRedisStore(cmd.RedisURL, cmd.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported offline backend %q for the sync command", cmd.Backend)
	}
}

func (cmd *SyncCommand) status(ctx context.Context, client *offline.Client) error {
	list, err := client.Mutations(ctx)
	if err != nil {
		return err
	}

	if cmd.JSON {
		if list == nil {
			list = []offline.Mutation{}
		}
		return cmd.printJSON(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(cmd.Out, "No queued mutations")
		return nil
	}
	for _, m := range list {
		fmt.Fprintf(cmd.Out, "%s  %-6s  book=%d annotation=%d  %-9s attempts=%d",
			m.ID, m.Op, m.BookID, m.AnnotationID, m.Status, m.Attempts)
		if m.LastError != "" {
			fmt.Fprintf(cmd.Out, "  last_error=%q", m.LastError)
		}
		fmt.Fprintln(cmd.Out)
	}
	return nil
}

func (cmd *SyncCommand) printReport(report offline.ReplayReport) error {
	if cmd.JSON {
		return cmd.printJSON(report)
	}
	if report.Offline {
		fmt.Fprintln(cmd.Out, "Server unreachable, mutations stay queued")
	}
	fmt.Fprintf(cmd.Out, "Applied: %d, failed: %d, skipped: %d\n", report.Applied, report.Failed, report.Skipped)
	return nil
}

func (cmd *SyncCommand) printJSON(v any) error {
	enc := json.NewEncoder(cmd.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cmd *SyncCommand) annotate(ctx context.Context, client *offline.Client) error {
	raw, err := location.EncodeTXT(location.TXT{
		FileID:        int64(cmd.FileID),
		AbsStart:      cmd.Start,
		AbsEnd:        cmd.End,
		SelectionText: cmd.Selection,
	})
	if err != nil {
		return err
	}

	req := offline.CreateRequest{Location: raw}
	if cmd.Color != "" {
		req.Color = &cmd.Color
	}
	a, err := client.Create(ctx, cmd.BookID, req)
	if err != nil {
		return err
	}

	if cmd.JSON {
		return cmd.printJSON(a)
	}
	if a.Pending {
		fmt.Fprintf(cmd.Out, "Queued annotation %d, run 'sync replay' once the server is reachable\n", a.ID)
	} else {
		fmt.Fprintf(cmd.Out, "Created annotation %d\n", a.ID)
	}
	return nil
}

func (cmd *SyncCommand) watch(client *offline.Client) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return cmd.watchUntil(ctx, client)
}

// watchUntil replays on cmd.Schedule until ctx is done, then prints the
// outcome of the last pass.
func (cmd *SyncCommand) watchUntil(ctx context.Context, client *offline.Client) error {
	s := scheduler.NewReplayScheduler(client, cmd.Schedule)
	if err := s.Start(ctx); err != nil {
		return err
	}
	if _, err := s.RunNow(ctx); err != nil {
		log.Printf("[REPLAY] Initial pass failed: %v", err)
	}

	<-ctx.Done()
	s.Stop()

	report, at := s.LastRun()
	if at.IsZero() {
		fmt.Fprintln(cmd.Out, "No replay ran")
		return nil
	}
	fmt.Fprintf(cmd.Out, "Last replay at %s\n", at.Format(time.RFC3339))
	return cmd.printReport(report)
}
