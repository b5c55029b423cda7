package model

import "time"

// TrialResult 单次刺激-反应测量记录，只增不改
type TrialResult struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BatchID       string    `gorm:"type:varchar(36);index" json:"batchId"`
	ParticipantID string    `gorm:"type:varchar(100);not null;index" json:"participantId"`
	TaskType      string    `gorm:"type:varchar(50)" json:"taskType"` // e.g., "stroop_congruent"
	StimulusWord  string    `gorm:"type:varchar(20)" json:"stimulusWord"`
	StimulusColor string    `gorm:"type:varchar(20)" json:"stimulusColor"`
	ResponseTime  *float64  `json:"responseTime"`
	KeyPress      *string   `gorm:"type:varchar(10)" json:"keyPress"`
	WasCorrect    *bool     `json:"wasCorrect"`
	AvgBlinkRate  *float64  `json:"avgBlinkRate"` // blinks per minute during this trial
	CreatedAt     time.Time `json:"createdAt"`
}

func (TrialResult) TableName() string {
	return "trial_results"
}
