// Package database provides the data access layer for the server.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── files/           # Books, text files and their chapter sets
//	├── annotations/     # Annotation CRUD
//	└── settings/        # Key/value settings (default chapter pattern, task bookkeeping)
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./txtshelf.db")
//
//	filesRepo := files.NewRepository(db.DB)
//	annotationsRepo := annotations.NewRepository(db.DB)
//
//	list, err := filesRepo.GetChapters(fileID)
//
// Chapter sets are always replaced as a whole inside one transaction so
// readers never observe a half-written set.
package database
