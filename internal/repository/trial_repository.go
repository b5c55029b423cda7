package repository

import (
	"stroop_lab_backend/internal/model"

	"gorm.io/gorm"
)

type TrialRepository struct {
	DB *gorm.DB
}

func NewTrialRepository(db *gorm.DB) *TrialRepository {
	return &TrialRepository{DB: db}
}

// CreateBatch 在调用方给定的事务中批量插入试次行
func (r *TrialRepository) CreateBatch(tx *gorm.DB, trials []model.TrialResult) error {
	if len(trials) == 0 {
		return nil
	}
	return tx.Create(&trials).Error
}

func (r *TrialRepository) CountByParticipant(participantID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.TrialResult{}).
		Where("participant_id = ?", participantID).
		Count(&count).Error
	return count, err
}

func (r *TrialRepository) FindByParticipant(participantID string) ([]model.TrialResult, error) {
	var trials []model.TrialResult
	err := r.DB.Where("participant_id = ?", participantID).
		Order("id ASC").
		Find(&trials).Error
	return trials, err
}

func (r *TrialRepository) FindByBatch(batchID string) ([]model.TrialResult, error) {
	var trials []model.TrialResult
	err := r.DB.Where("batch_id = ?", batchID).
		Order("id ASC").
		Find(&trials).Error
	return trials, err
}
