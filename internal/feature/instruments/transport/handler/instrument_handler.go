package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"market_data/internal/feature/instruments/domain/entity"
	"market_data/internal/feature/instruments/transport/http/dto"
)

// UniverseUsecase は取り込み対象ユニバースのインターフェースです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type UniverseUsecase interface {
	Symbols(ctx context.Context) ([]string, error)
	Refresh(ctx context.Context) ([]string, error)
}

// CatalogUsecase は銘柄マスタ参照のインターフェースです。
type CatalogUsecase interface {
	ListActiveInstruments(ctx context.Context) ([]entity.Instrument, error)
}

// InstrumentHandler は銘柄ユニバースと銘柄マスタに関するHTTPリクエストを処理します。
type InstrumentHandler struct {
	universe UniverseUsecase
	catalog  CatalogUsecase
}

// NewInstrumentHandler は新しい InstrumentHandler を作成します。catalog は nil でも構いません。
func NewInstrumentHandler(universe UniverseUsecase, catalog CatalogUsecase) *InstrumentHandler {
	return &InstrumentHandler{universe: universe, catalog: catalog}
}

// List は読み込み済みのユニバースを返します（GET /instruments）。
func (h *InstrumentHandler) List(c *gin.Context) {
	keys, err := h.universe.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toUniverseResponse(keys))
}

// Refresh はユニバースを読み込み直します（POST /universe/refresh）。
func (h *InstrumentHandler) Refresh(c *gin.Context) {
	keys, err := h.universe.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toUniverseResponse(keys))
}

// Catalog は銘柄マスタのアクティブな行を返します（GET /instruments/catalog）。
func (h *InstrumentHandler) Catalog(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "instrument catalogue not configured"})
		return
	}
	instruments, err := h.catalog.ListActiveInstruments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.InstrumentItem, 0, len(instruments))
	for _, in := range instruments {
		out = append(out, dto.InstrumentItem{
			Symbol:        in.Symbol,
			InstrumentKey: in.InstrumentKey,
			LastPrice:     in.LastPrice,
			UpdatedAt:     in.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func toUniverseResponse(keys []string) dto.UniverseResponse {
	if keys == nil {
		keys = []string{}
	}
	return dto.UniverseResponse{Count: len(keys), InstrumentKeys: keys}
}
