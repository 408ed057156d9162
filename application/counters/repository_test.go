package counters

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"qdispatch/application/queues"
	"qdispatch/common"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&common.Queue{}, &common.Counter{}, &common.Ticket{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func seedQueue(t *testing.T, db *gorm.DB) *common.Queue {
	queue := &common.Queue{Name: "Pharmacy", AvgHandleTime: 5}
	if err := db.Create(queue).Error; err != nil {
		t.Fatalf("Failed to seed queue: %v", err)
	}
	return queue
}

func TestCreateCounter(t *testing.T) {
	db := setupTestDB(t)
	queue := seedQueue(t, db)
	svc := NewService(NewRepository(db), queues.NewRepository(db), zap.NewNop())
	ctx := context.Background()

	counter, err := svc.Create(ctx, queue.ID, "Window 1")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if counter.ID == 0 {
		t.Error("Create() did not assign an id")
	}
	if counter.IsBusy {
		t.Error("new counter should be free")
	}

	if _, err := svc.Create(ctx, 999, "Window 2"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Create() with unknown queue error = %v, want %v", err, common.ErrNotFound)
	}
	if _, err := svc.Create(ctx, queue.ID, "  "); !errors.Is(err, common.ErrValidation) {
		t.Errorf("Create() with blank name error = %v, want %v", err, common.ErrValidation)
	}
}

func TestAcquireFree(t *testing.T) {
	db := setupTestDB(t)
	queue := seedQueue(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, name := range []string{"Window 1", "Window 2"} {
		if err := repo.Create(ctx, &common.Counter{QueueID: queue.ID, Name: name}); err != nil {
			t.Fatalf("Failed to seed counter: %v", err)
		}
	}

	// Two sequential acquisitions must hand out distinct counters.
	var first, second *common.Counter
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = repo.AcquireFree(tx, queue.ID)
		return err
	})
	if err != nil {
		t.Fatalf("AcquireFree() failed: %v", err)
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = repo.AcquireFree(tx, queue.ID)
		return err
	})
	if err != nil {
		t.Fatalf("AcquireFree() failed: %v", err)
	}

	if first == nil || second == nil {
		t.Fatal("expected two counters to be acquired")
	}
	if first.ID == second.ID {
		t.Fatalf("both acquisitions returned counter %d", first.ID)
	}
	if !first.IsBusy || !second.IsBusy {
		t.Error("acquired counters should be marked busy")
	}

	// Pool exhausted: nil result, no error.
	var third *common.Counter
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		third, err = repo.AcquireFree(tx, queue.ID)
		return err
	})
	if err != nil {
		t.Fatalf("AcquireFree() on exhausted pool failed: %v", err)
	}
	if third != nil {
		t.Fatalf("expected nil from exhausted pool, got counter %d", third.ID)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	db := setupTestDB(t)
	queue := seedQueue(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	counter := &common.Counter{QueueID: queue.ID, Name: "Window 1", IsBusy: true}
	if err := repo.Create(ctx, counter); err != nil {
		t.Fatalf("Failed to seed counter: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return repo.Release(tx, counter.ID)
		})
		if err != nil {
			t.Fatalf("Release() attempt %d failed: %v", i+1, err)
		}
	}

	var stored common.Counter
	if err := db.First(&stored, counter.ID).Error; err != nil {
		t.Fatalf("Failed to reload counter: %v", err)
	}
	if stored.IsBusy {
		t.Error("counter should be free after release")
	}
}
