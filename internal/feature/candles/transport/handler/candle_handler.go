// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/transport/http/dto"
)

// CandlesUsecase はローソク足データ参照のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetLatest(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool)
	GetHistorical(ctx context.Context, symbol string, interval entity.Interval) []entity.Candle
	InvalidateCache(ctx context.Context, symbol string, interval entity.Interval) error
	InvalidateAllCache(ctx context.Context) error
}

// CandlesHandler はローソク足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc CandlesUsecase
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetLatest は銘柄・時間足の最新（または ts 指定時刻）のローソク足を返します。
// ts は期間の途中の時刻でもよく、その時刻を含むローソク足を返します。
//
// エンドポイント例:
// GET /candles/:symbol/latest?interval=1m&ts=1704259020000
func (h *CandlesHandler) GetLatest(c *gin.Context) {
	interval, err := entity.ParseInterval(c.DefaultQuery("interval", entity.Interval1Minute.String()))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	var at time.Time
	if ts := c.Query("ts"); ts != "" {
		ms, err := strconv.ParseInt(ts, 10, 64)
		if err != nil || ms < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "ts must be milliseconds since epoch"})
			return
		}
		at = time.UnixMilli(ms).UTC()
	}

	candle, ok := h.uc.GetLatest(c.Request.Context(), c.Param("symbol"), interval, at)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: entity.ErrCandleNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.NewCandleResponse(candle))
}

// GetHistorical は銘柄のローソク足一覧を時刻昇順で返します。interval 省略時は全時間足です。
//
// エンドポイント例:
// GET /candles/:symbol?interval=1d
func (h *CandlesHandler) GetHistorical(c *gin.Context) {
	var interval entity.Interval
	if raw := c.Query("interval"); raw != "" {
		iv, err := entity.ParseInterval(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		interval = iv
	}

	candles := h.uc.GetHistorical(c.Request.Context(), c.Param("symbol"), interval)
	out := make([]dto.CandleResponse, 0, len(candles))
	for _, x := range candles {
		out = append(out, dto.NewCandleResponse(x))
	}
	c.JSON(http.StatusOK, out)
}

// InvalidateCache は銘柄（と時間足）のキャッシュを削除します。
//
// エンドポイント例:
// DELETE /cache/candles/:symbol?interval=1m
func (h *CandlesHandler) InvalidateCache(c *gin.Context) {
	var interval entity.Interval
	if raw := c.Query("interval"); raw != "" {
		iv, err := entity.ParseInterval(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		interval = iv
	}

	if err := h.uc.InvalidateCache(c.Request.Context(), c.Param("symbol"), interval); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, entity.ErrInvalidSymbol) || errors.Is(err, entity.ErrInvalidInterval) {
			status = http.StatusBadRequest
		}
		c.JSON(status, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// InvalidateAllCache はローソク足キャッシュを全て削除します（DELETE /cache/candles）。
func (h *CandlesHandler) InvalidateAllCache(c *gin.Context) {
	if err := h.uc.InvalidateAllCache(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
