package repository

import (
	"gorm.io/gorm"
)

// Store — GORM-хранилище записей User/Agent/Ticket. Единственная точка
// сериализации для конкурентных мутаций: всё взаимное исключение между
// запросами строится на условных UPDATE, а не на блокировках в памяти.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB отдаёт низлежащее подключение (миграции в тестах, health-проверки).
func (s *Store) DB() *gorm.DB {
	return s.db
}
