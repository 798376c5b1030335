package interfaces

// Compile-time checks that concrete types satisfy the interfaces their
// consumers declare.

import (
	"github.com/mrlokans/txtshelf/internal/apiclient"
	"github.com/mrlokans/txtshelf/internal/assets"
	"github.com/mrlokans/txtshelf/internal/database/annotations"
	"github.com/mrlokans/txtshelf/internal/database/files"
	"github.com/mrlokans/txtshelf/internal/database/settings"
	"github.com/mrlokans/txtshelf/internal/http"
	"github.com/mrlokans/txtshelf/internal/offline"
	"github.com/mrlokans/txtshelf/internal/scheduler"
	"github.com/mrlokans/txtshelf/internal/search"
	"github.com/mrlokans/txtshelf/internal/services"
	"github.com/mrlokans/txtshelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ services.FileStore = (*files.Repository)(nil)
var _ services.AnnotationStore = (*annotations.Repository)(nil)
var _ services.SettingsStore = (*settings.Repository)(nil)
var _ services.AssetStore = (*assets.Store)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ services.DetectScheduler = (*tasks.Client)(nil)
var _ http.PruneScheduler = (*tasks.Client)(nil)
var _ scheduler.PruneEnqueuer = (*tasks.Client)(nil)
var _ http.QueueState = (*tasks.Client)(nil)
var _ tasks.ChapterDetector = (*services.ChapterService)(nil)
var _ tasks.AssetPruner = (*services.ChapterService)(nil)
var _ tasks.PruneRecorder = (*settings.Repository)(nil)
var _ scheduler.Replayer = (*offline.Client)(nil)

// =============================================================================
// Offline Reader
// =============================================================================

var _ offline.Store = (*offline.MemoryStore)(nil)
var _ offline.Store = (*offline.SQLStore)(nil)
var _ offline.Store = (*offline.RedisStore)(nil)
var _ offline.Remote = (*apiclient.Client)(nil)

// =============================================================================
// Search
// =============================================================================

var _ search.Corpus = (*search.TextCorpus)(nil)
var _ search.Corpus = (*offline.CachedCorpus)(nil)
