package service

import (
	"context"
	"testing"

	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore — общий стенд на sqlite в памяти. Один коннект в пуле:
// каждое in-memory соединение sqlite — отдельная база.
func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.User{}, &model.Agent{}, &model.PendingAgentRequest{}, &model.Ticket{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return repository.NewStore(db)
}

// seedUser создаёт пользователя с определённым языком.
func seedUser(t *testing.T, store *repository.Store, id int64, lang string) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.EnsureUser(ctx, id); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if lang != "" {
		if err := store.SaveUserLanguage(ctx, id, lang); err != nil {
			t.Fatalf("save language: %v", err)
		}
	}
}

// seedAgent создаёт одобренного агента.
func seedAgent(t *testing.T, store *repository.Store, id int64, languages string, rate float64) {
	t.Helper()
	agent := model.Agent{ID: id, FullName: "Agent", Languages: languages, CommissionRate: rate}
	if err := store.DB().Create(&agent).Error; err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

// seedOpenTicket открывает тикет для пользователя.
func seedOpenTicket(t *testing.T, store *repository.Store, userID int64) *model.Ticket {
	t.Helper()
	ticket, err := store.CreateTicket(context.Background(), userID, "msg://1")
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}
