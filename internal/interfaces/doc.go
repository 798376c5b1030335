// Package interfaces lists the seams between txtshelf packages and holds the
// compile-time checks that keep implementations in line with them.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - FileStore: Books, text files and chapter sets (internal/services/interfaces.go)
//   - AnnotationStore: Annotation persistence (internal/services/interfaces.go)
//   - SettingsStore: Runtime settings such as the default pattern (internal/services/interfaces.go)
//   - AssetStore: Raw uploads and canonical text by digest (internal/services/interfaces.go)
//
// ## Background Work Interfaces
//
//   - DetectScheduler: Queue chapter detection after ingest (internal/services/interfaces.go)
//   - ChapterDetector, AssetPruner, PruneRecorder: Task processor dependencies (internal/tasks/)
//   - PruneScheduler: Queue a cache prune after a file is deleted (internal/http/files.go)
//   - Replayer: Periodic offline replay (internal/scheduler/replay.go)
//   - TaskQueue, QueueState: Manual task runs and the health check (internal/http/)
//
// ## Offline Reader Interfaces
//
//   - Store: Durable key/value store behind the mutation log and caches (internal/offline/store.go)
//   - Remote: Server API used by the offline client (internal/offline/remote.go)
//
// ## Search Interfaces
//
//   - Corpus: Chapters and their text, server-side or cached (internal/search/engine.go)
//
// # Adding a New Offline Store Backend
//
// To keep the reader-side state somewhere else (e.g., BoltDB):
//
//  1. Implement Store in internal/offline/
//
//     type BoltStore struct { db *bolt.DB }
//
//     func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, error)
//     func (s *BoltStore) Put(ctx context.Context, key string, value []byte) error
//     func (s *BoltStore) Delete(ctx context.Context, key string) error
//     func (s *BoltStore) List(ctx context.Context, prefix string) ([]string, error)
//
//     Get must return ErrNotFound for missing keys and List must return keys
//     in ascending order; the mutation log relies on it for replay order.
//
//  2. Add the backend to the store table in store_test.go
//
//  3. Select it in internal/cli/sync.go
//
// # Adding a New Location Format
//
// Locations are a tagged union keyed by "format" (internal/location/).
//
//  1. Add the Format constant and its payload type
//
//  2. Handle it in Parse; Decode keeps unknown formats as unrenderable
//
//  3. Teach the reader to place it (internal/offline/reader.go)
//
// # Adding a New Database Domain
//
// To add a new data domain (e.g., reading progress):
//
//  1. Create sub-package: internal/database/progress/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Add its entity to database.Models
//
//  4. Add compile-time check:
//
//     var _ ProgressStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// Every implementation gets a line in checks.go:
//
//	var _ offline.Store = (*offline.RedisStore)(nil)
package interfaces
