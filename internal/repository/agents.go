package repository

import (
	"context"
	"errors"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) GetAgent(ctx context.Context, id int64) (*model.Agent, error) {
	var a model.Agent
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrAgentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) SetAgentLanguages(ctx context.Context, id int64, codes string) error {
	res := s.db.WithContext(ctx).Model(&model.Agent{}).
		Where("id = ?", id).
		Update("languages", codes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrAgentNotFound
	}
	return nil
}

func (s *Store) SetCommissionRate(ctx context.Context, id int64, rate float64) error {
	res := s.db.WithContext(ctx).Model(&model.Agent{}).
		Where("id = ?", id).
		Update("commission_rate", rate)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrAgentNotFound
	}
	return nil
}

// SavePendingAgent сохраняет заявку; повторная заявка того же пользователя
// перезаписывает предыдущую.
func (s *Store) SavePendingAgent(ctx context.Context, req *model.PendingAgentRequest) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "languages", "availability"}),
	}).Create(req).Error
}

func (s *Store) PendingAgents(ctx context.Context) ([]model.PendingAgentRequest, error) {
	var out []model.PendingAgentRequest
	err := s.db.WithContext(ctx).Order("requested_at ASC").Find(&out).Error
	return out, err
}

// ApproveAgent превращает заявку в запись агента и удаляет заявку — одной
// транзакцией, заявка уничтожается ровно при конвертации.
func (s *Store) ApproveAgent(ctx context.Context, userID int64) (*model.Agent, error) {
	var agent model.Agent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req model.PendingAgentRequest
		if err := tx.First(&req, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrAgentNotFound
			}
			return err
		}
		agent = model.Agent{
			ID:           req.ID,
			FullName:     req.FullName,
			Languages:    req.Languages,
			Availability: req.Availability,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "languages", "availability"}),
		}).Create(&agent).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PendingAgentRequest{}, userID).Error
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *Store) RejectAgent(ctx context.Context, userID int64) error {
	return s.db.WithContext(ctx).Delete(&model.PendingAgentRequest{}, userID).Error
}
