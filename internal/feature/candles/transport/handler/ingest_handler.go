package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/scheduler"
	"market_data/internal/feature/candles/transport/http/dto"
	"market_data/internal/feature/candles/usecase"
)

// IngestTrigger は手動起動とスケジュール参照のインターフェースです（scheduler.Scheduler）。
type IngestTrigger interface {
	Trigger(ctx context.Context, interval entity.Interval) (usecase.RunReport, error)
	TriggerAsync(interval entity.Interval) error
	Entries() []scheduler.Entry
}

// IngestHandler は取り込みの管理用エンドポイントを処理します。
type IngestHandler struct {
	trigger IngestTrigger
}

// NewIngestHandler は新しい IngestHandler を作成します。
func NewIngestHandler(trigger IngestTrigger) *IngestHandler {
	return &IngestHandler{trigger: trigger}
}

// Trigger は時間足の取り込みを起動します。
// 既定ではバックグラウンドで開始して202を返し、wait=true の場合は完了まで待って結果を返します。
//
// エンドポイント例:
// POST /ingest/:interval?wait=true
func (h *IngestHandler) Trigger(c *gin.Context) {
	interval, err := entity.ParseInterval(c.Param("interval"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if c.Query("wait") != "true" {
		if err := h.trigger.TriggerAsync(interval); err != nil {
			c.JSON(statusFor(err), dto.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"interval": interval, "state": usecase.RunRunning})
		return
	}

	report, err := h.trigger.Trigger(c.Request.Context(), interval)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// Schedules は登録済みスケジュールを返します（GET /schedules）。
func (h *IngestHandler) Schedules(c *gin.Context) {
	c.JSON(http.StatusOK, h.trigger.Entries())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, usecase.ErrEmptyUniverse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
