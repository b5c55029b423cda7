package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"stroop_lab_backend/internal/model"
	"stroop_lab_backend/internal/repository"
	"stroop_lab_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.TrialResult{}))
	return db
}

func setupRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *repository.TrialRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewTrialRepository(db)
	svc := service.NewSubmissionService(repo, db)
	ctrl := NewSubmissionController(svc)

	router := gin.New()
	router.POST("/api/submit-data", ctrl.SubmitData)
	return router, repo
}

func postSubmitData(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/submit-data", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitDataSavesBatch(t *testing.T) {
	db := openTestDB(t, "file:submit_saves_batch?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	body := `{
		"participant_id": "P1",
		"trials": [{
			"task_type": "stroop_congruent",
			"stimulus_word": "RED",
			"stimulus_color": "red",
			"response_time": 0.532,
			"key_press": "r",
			"was_correct": true,
			"avg_blink_rate": 14.2
		}]
	}`

	w := postSubmitData(router, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","trials_saved":1}`, w.Body.String())

	trials, err := repo.FindByParticipant("P1")
	require.NoError(t, err)
	require.Len(t, trials, 1)

	trial := trials[0]
	assert.NotZero(t, trial.ID)
	assert.NotEmpty(t, trial.BatchID)
	assert.Equal(t, "P1", trial.ParticipantID)
	assert.Equal(t, "stroop_congruent", trial.TaskType)
	assert.Equal(t, "RED", trial.StimulusWord)
	assert.Equal(t, "red", trial.StimulusColor)
	require.NotNil(t, trial.ResponseTime)
	assert.Equal(t, 0.532, *trial.ResponseTime)
	require.NotNil(t, trial.KeyPress)
	assert.Equal(t, "r", *trial.KeyPress)
	require.NotNil(t, trial.WasCorrect)
	assert.True(t, *trial.WasCorrect)
	require.NotNil(t, trial.AvgBlinkRate)
	assert.Equal(t, 14.2, *trial.AvgBlinkRate)
}

func TestSubmitDataCountsAllTrials(t *testing.T) {
	db := openTestDB(t, "file:submit_counts_all?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	var trials []string
	for i := 0; i < 5; i++ {
		trials = append(trials, fmt.Sprintf(`{"task_type":"stroop_congruent","stimulus_word":"W%d","stimulus_color":"red"}`, i))
	}
	body := `{"participant_id":"P2","trials":[` + strings.Join(trials, ",") + `]}`

	w := postSubmitData(router, body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"success","trials_saved":5}`, w.Body.String())

	count, err := repo.CountByParticipant("P2")
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)

	// 行顺序与提交顺序一致
	saved, err := repo.FindByParticipant("P2")
	require.NoError(t, err)
	for i, trial := range saved {
		assert.Equal(t, fmt.Sprintf("W%d", i), trial.StimulusWord)
	}
}

func TestSubmitDataMissingParticipantID(t *testing.T) {
	db := openTestDB(t, "file:submit_missing_pid?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	for _, body := range []string{
		`{"trials":[{"task_type":"stroop_congruent"}]}`,
		`{"participant_id":"","trials":[{"task_type":"stroop_congruent"}]}`,
	} {
		w := postSubmitData(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"error","message":"Missing participant_id or trials data"}`, w.Body.String())
	}

	var count int64
	require.NoError(t, repo.DB.Model(&model.TrialResult{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitDataMissingTrials(t *testing.T) {
	db := openTestDB(t, "file:submit_missing_trials?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	for _, body := range []string{
		`{"participant_id":"P3"}`,
		`{"participant_id":"P3","trials":[]}`,
	} {
		w := postSubmitData(router, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"status":"error","message":"Missing participant_id or trials data"}`, w.Body.String())
	}

	count, err := repo.CountByParticipant("P3")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitDataUndecodableBody(t *testing.T) {
	db := openTestDB(t, "file:submit_bad_body?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	w := postSubmitData(router, `{"participant_id": "P4", "trials": [`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.NotEmpty(t, resp["message"])

	count, err := repo.CountByParticipant("P4")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitDataRollsBackOnPersistenceFault(t *testing.T) {
	db := openTestDB(t, "file:submit_rollback?mode=memory&cache=shared")

	// 插入执行后注入存储故障，驱动事务整体回滚
	err := db.Callback().Create().After("gorm:create").Register("test_fault_injection", func(tx *gorm.DB) {
		if rows, ok := tx.Statement.Dest.(*[]model.TrialResult); ok {
			for _, row := range *rows {
				if row.StimulusWord == "FAULT" {
					tx.AddError(errors.New("simulated store fault"))
					return
				}
			}
		}
	})
	require.NoError(t, err)

	router, repo := setupRouter(t, db)

	body := `{"participant_id":"P5","trials":[
		{"task_type":"stroop_congruent","stimulus_word":"RED","stimulus_color":"red"},
		{"task_type":"stroop_incongruent","stimulus_word":"FAULT","stimulus_color":"blue"}
	]}`

	w := postSubmitData(router, body)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "simulated store fault")

	// 整批不可见，包括故障前的行
	count, err := repo.CountByParticipant("P5")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSubmitDataOptionalFieldsAbsent(t *testing.T) {
	db := openTestDB(t, "file:submit_optional_absent?mode=memory&cache=shared")
	router, repo := setupRouter(t, db)

	body := `{"participant_id":"P6","trials":[{"task_type":"stroop_congruent","stimulus_word":"GREEN","stimulus_color":"green"}]}`
	w := postSubmitData(router, body)
	require.Equal(t, http.StatusCreated, w.Code)

	trials, err := repo.FindByParticipant("P6")
	require.NoError(t, err)
	require.Len(t, trials, 1)

	assert.Nil(t, trials[0].ResponseTime)
	assert.Nil(t, trials[0].KeyPress)
	assert.Nil(t, trials[0].WasCorrect)
	assert.Nil(t, trials[0].AvgBlinkRate)
}

func TestSubmitDataConcurrentParticipants(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trials.db")
	db := openTestDB(t, dbPath+"?_busy_timeout=5000")
	router, repo := setupRouter(t, db)

	const trialsPerBatch = 10
	makeBody := func(participantID string) string {
		var trials []string
		for i := 0; i < trialsPerBatch; i++ {
			trials = append(trials, `{"task_type":"stroop_congruent","stimulus_word":"RED","stimulus_color":"red"}`)
		}
		return fmt.Sprintf(`{"participant_id":%q,"trials":[%s]}`, participantID, strings.Join(trials, ","))
	}

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, pid := range []string{"PA", "PB"} {
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			w := postSubmitData(router, makeBody(pid))
			codes[i] = w.Code
		}(i, pid)
	}
	wg.Wait()

	assert.Equal(t, http.StatusCreated, codes[0])
	assert.Equal(t, http.StatusCreated, codes[1])

	for _, pid := range []string{"PA", "PB"} {
		count, err := repo.CountByParticipant(pid)
		require.NoError(t, err)
		assert.EqualValues(t, trialsPerBatch, count)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, "file:health_check?mode=memory&cache=shared")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/api/health", NewHealthController(db).HealthCheck)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
}
