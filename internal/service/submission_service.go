package service

import (
	"stroop_lab_backend/internal/model"
	"stroop_lab_backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubmissionService struct {
	repo *repository.TrialRepository
	db   *gorm.DB
}

func NewSubmissionService(repo *repository.TrialRepository, db *gorm.DB) *SubmissionService {
	return &SubmissionService{repo: repo, db: db}
}

// BatchResult 一次提交的持久化结果
type BatchResult struct {
	BatchID     string
	TrialsSaved int
}

// SaveBatch 把一名被试的一批试次写入数据库。整批在同一事务中提交，
// 任何一行失败则全部回滚。trials_saved 即收到的试次数，行不会被过滤。
func (s *SubmissionService) SaveBatch(participantID string, trials []map[string]any) (*BatchResult, error) {
	batchID := uuid.New().String()

	rows := make([]model.TrialResult, 0, len(trials))
	for _, payload := range trials {
		rows = append(rows, rowFromPayload(participantID, batchID, payload))
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.CreateBatch(tx, rows)
	})
	if err != nil {
		return nil, err
	}

	return &BatchResult{BatchID: batchID, TrialsSaved: len(trials)}, nil
}

// rowFromPayload 宽松地从试次对象取字段：缺失或类型不符的字段取中性值
// （字符串留空、可选字段存 NULL），单个畸形试次不会使整批失败。
func rowFromPayload(participantID, batchID string, payload map[string]any) model.TrialResult {
	return model.TrialResult{
		BatchID:       batchID,
		ParticipantID: participantID,
		TaskType:      stringField(payload, "task_type"),
		StimulusWord:  stringField(payload, "stimulus_word"),
		StimulusColor: stringField(payload, "stimulus_color"),
		ResponseTime:  floatField(payload, "response_time"),
		KeyPress:      stringPtrField(payload, "key_press"),
		WasCorrect:    boolField(payload, "was_correct"),
		AvgBlinkRate:  floatField(payload, "avg_blink_rate"),
	}
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func stringPtrField(payload map[string]any, key string) *string {
	if v, ok := payload[key].(string); ok {
		return &v
	}
	return nil
}

func floatField(payload map[string]any, key string) *float64 {
	// encoding/json 把所有 JSON 数字解码为 float64
	if v, ok := payload[key].(float64); ok {
		return &v
	}
	return nil
}

func boolField(payload map[string]any, key string) *bool {
	if v, ok := payload[key].(bool); ok {
		return &v
	}
	return nil
}
