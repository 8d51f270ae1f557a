package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/batchplan/pkg/application/services/orchestration"
	"github.com/vsinha/batchplan/pkg/domain/entities"
	"github.com/vsinha/batchplan/pkg/domain/repositories"
	"github.com/vsinha/batchplan/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/batchplan/pkg/logger"
)

type PlanHandler struct {
	orchestrator *orchestration.PlanningOrchestrator
	now          func() time.Time
}

func NewPlanHandler(orchestrator *orchestration.PlanningOrchestrator) *PlanHandler {
	return &PlanHandler{orchestrator: orchestrator, now: time.Now}
}

// Simulate runs one planning request and returns the result tables
// POST /api/v1/plans/simulate
func (h *PlanHandler) Simulate(c *gin.Context) {
	var body SimulateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req, err := body.toPlanRequest()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.orchestrator.RunPlan(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, statusFor(err), "planning failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Diff plans both schedules and returns the usage comparison as CSV
// POST /api/v1/plans/diff
func (h *PlanHandler) Diff(c *gin.Context) {
	var body DiffRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	current, err := body.Current.toPlanRequest()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid current schedule", err)
		return
	}
	var previous *orchestration.PlanRequest
	if body.Previous != nil {
		req, err := body.Previous.toPlanRequest()
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid previous schedule", err)
			return
		}
		previous = &req
	}

	var buf bytes.Buffer
	result, err := h.orchestrator.RunDiff(c.Request.Context(), current, previous, &buf)
	if err != nil {
		errorResponse(c, statusFor(err), "diff failed", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="plan_diff_%s.csv"`, result.RunID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// PreviousBatches returns the remaining batches of the latest saved plan
// GET /api/v1/plans/previous-batches?stockInventory=xxx&today=YYYY-MM-DD
func (h *PlanHandler) PreviousBatches(c *gin.Context) {
	stockInventory := c.Query("stockInventory")
	if stockInventory == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stockInventory is required"})
		return
	}
	today := h.now()
	if raw := c.Query("today"); raw != "" {
		parsed, err := entities.ParseDate(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid today", err)
			return
		}
		today = parsed
	}

	batches, err := h.orchestrator.PreviousBatches(c.Request.Context(), stockInventory, today)
	if err != nil {
		errorResponse(c, statusFor(err), "failed to fetch previous batches", err)
		return
	}

	resp := PreviousBatchesResponse{
		StockInventory: stockInventory,
		Batches:        make([]BatchRequest, 0, len(batches)),
	}
	for _, b := range batches {
		resp.Batches = append(resp.Batches, toBatchRequest(b))
	}
	c.JSON(http.StatusOK, resp)
}

type StockHandler struct {
	materials repositories.MaterialRepository
	stock     repositories.StockRepository
}

func NewStockHandler(materials repositories.MaterialRepository, stock repositories.StockRepository) *StockHandler {
	return &StockHandler{materials: materials, stock: stock}
}

// ImportWorkbook reads an uploaded stock workbook and saves it as a named snapshot
// POST /api/v1/stock/import (multipart: file, name, asOf)
func (h *StockHandler) ImportWorkbook(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	var asOf time.Time
	if raw := c.PostForm("asOf"); raw != "" {
		asOf, err = entities.ParseDate(raw)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "invalid asOf", err)
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to open upload", err)
		return
	}
	defer file.Close()

	result, err := xlsx.NewStockImporter(h.materials).ImportReader(c.Request.Context(), file, name, asOf)
	if err != nil {
		errorResponse(c, http.StatusUnprocessableEntity, "failed to import stock workbook", err)
		return
	}
	if err := h.stock.SaveSnapshot(c.Request.Context(), result.Snapshot); err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to save stock snapshot", err)
		return
	}

	lines := make([]gin.H, 0, len(result.Lines))
	for _, line := range result.Lines {
		lines = append(lines, gin.H{
			"materialCode":  line.MaterialCode,
			"materialName":  line.MaterialName,
			"stock":         float64(line.Stock),
			"unitOfMeasure": line.UnitOfMeasure,
		})
	}
	unknown := result.UnknownTallyCodes
	if unknown == nil {
		unknown = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"stockInventory":    name,
		"lines":             lines,
		"unknownTallyCodes": unknown,
	})
}

// statusFor maps planning errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrUnknownMaterial),
		errors.Is(err, entities.ErrInvalidMaterialReference),
		errors.Is(err, entities.ErrInvalidFormulation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	logger.Log.Error().Err(err).Int("status", statusCode).Msg(message)
	c.JSON(statusCode, gin.H{"error": message, "details": err.Error()})
}
