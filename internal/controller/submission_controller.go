package controller

import (
	"net/http"
	"strconv"

	"stroop_lab_backend/internal/service"
	"stroop_lab_backend/internal/util"
	"stroop_lab_backend/pkg/logger"
	"stroop_lab_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubmissionController struct {
	service *service.SubmissionService
}

func NewSubmissionController(s *service.SubmissionService) *SubmissionController {
	return &SubmissionController{service: s}
}

// SubmitDataRequest 前端一次实验提交的全部试次数据。
// trials 元素按 map 宽松解码，缺失字段由服务层补中性值。
type SubmitDataRequest struct {
	ParticipantID string           `json:"participant_id"`
	Trials        []map[string]any `json:"trials"`
}

type SubmitDataResponse struct {
	Status      string `json:"status"`
	TrialsSaved int    `json:"trials_saved"`
}

// SubmitData godoc
// @Summary 提交一批试次数据
// @Description 接收被试一次实验的全部试次并在单个事务中落库，整批要么全部保存要么全部回滚
// @Tags 数据采集
// @Accept json
// @Produce json
// @Param body body SubmitDataRequest true "被试ID与试次列表"
// @Success 201 {object} SubmitDataResponse
// @Failure 400 {object} util.Response
// @Failure 500 {object} util.Response
// @Router /api/submit-data [post]
func (c *SubmissionController) SubmitData(ctx *gin.Context) {
	var req SubmitDataRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		// 请求体无法解码不属于文档化的 400 场景，按未预期失败处理
		monitoring.SubmissionCounter.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		util.InternalError(ctx, err)
		return
	}

	if req.ParticipantID == "" || len(req.Trials) == 0 {
		monitoring.SubmissionCounter.WithLabelValues(strconv.Itoa(http.StatusBadRequest)).Inc()
		util.BadRequest(ctx, "Missing participant_id or trials data")
		return
	}

	result, err := c.service.SaveBatch(req.ParticipantID, req.Trials)
	if err != nil {
		monitoring.SubmissionCounter.WithLabelValues(strconv.Itoa(http.StatusInternalServerError)).Inc()
		util.InternalError(ctx, err)
		return
	}

	logger.Log.Info("trial batch saved",
		zap.String("participantId", req.ParticipantID),
		zap.String("batchId", result.BatchID),
		zap.Int("trialsSaved", result.TrialsSaved),
	)
	monitoring.SubmissionCounter.WithLabelValues(strconv.Itoa(http.StatusCreated)).Inc()
	monitoring.TrialsSavedCounter.Add(float64(result.TrialsSaved))

	ctx.JSON(http.StatusCreated, SubmitDataResponse{
		Status:      "success",
		TrialsSaved: result.TrialsSaved,
	})
}
