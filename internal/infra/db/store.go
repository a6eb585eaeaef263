package db

import (
	"fmt"
	"log"

	"github.com/rifat-sarwar/IntelliTrust/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

// NewStore connects to postgres when a DSN is configured; with no DSN the
// ledger runs on the in-memory chain alone.
func NewStore(cfg config.Config) (*Store, error) {
	if cfg.PostgresDSN == "" {
		log.Printf("POSTGRES_DSN not set; running without a durable journal.")
		return &Store{DB: nil}, nil
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := gdb.AutoMigrate(&CommittedCallModel{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Store{DB: gdb}, nil
}

// NewStoreWithDialector opens a store on an arbitrary gorm dialector. Tests
// use this with sqlite.
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := gdb.AutoMigrate(&CommittedCallModel{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Store{DB: gdb}, nil
}
