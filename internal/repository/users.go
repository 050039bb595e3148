package repository

import (
	"context"
	"errors"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/model"
	"gorm.io/gorm"
)

// EnsureUser возвращает запись пользователя, создавая её при первом контакте.
func (s *Store) EnsureUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where(model.User{ID: id}).FirstOrCreate(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// IncrementSpam атомарно увеличивает счётчик и возвращает новое значение.
// Инкремент выполняется в самом хранилище: два конкурентных сообщения
// одного пользователя не могут потерять друг друга.
func (s *Store) IncrementSpam(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.WithContext(ctx).
		Raw("UPDATE users SET spam_counter = spam_counter + 1 WHERE id = ? RETURNING spam_counter", id).
		Scan(&n).Error
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errs.ErrUserNotFound
	}
	return n, nil
}

func (s *Store) ResetSpam(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("spam_counter", 1).Error
}

func (s *Store) SaveUserLanguage(ctx context.Context, id int64, code string) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("language", code).Error
}

// SetBanned идемпотентно выставляет флаг бана.
func (s *Store) SetBanned(ctx context.Context, id int64, banned bool) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("banned", banned).Error
}

// ResetUserTicketState сбрасывает указатель на текущий тикет и анти-спам
// счётчик (закрытие тикета, бан).
func (s *Store) ResetUserTicketState(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_ticket_id": nil,
			"spam_counter":      1,
		}).Error
}
