package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/zoutigo/smc-kpi/internal/kpi/cache"
	"github.com/zoutigo/smc-kpi/internal/kpi/repository"
	"github.com/zoutigo/smc-kpi/internal/kpi/service"
	"github.com/zoutigo/smc-kpi/internal/middleware"
)

// PermInvalidate 清除缓存所需权限
const PermInvalidate = "kpi:invalidate"

// DashboardProvider 看板数据来源（由 service.DashboardService 实现）
type DashboardProvider interface {
	Global(ctx context.Context, f repository.Filters) (*service.GlobalPayload, error)
	Category(ctx context.Context, slug string, f repository.Filters) (*service.CategoryPayload, error)
	ExportCategory(ctx context.Context, slug string, f repository.Filters) (*excelize.File, string, error)
	Invalidate(ctx context.Context, scope string) error
}

// DashboardHandler KPI看板处理器
type DashboardHandler struct {
	svc DashboardProvider
}

func NewDashboardHandler(svc DashboardProvider) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// RegisterRoutes 注册KPI路由，rg 需已挂载JWT认证
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	kpi := rg.Group("/kpi")
	{
		kpi.GET("/global", h.Dashboard.Global)
		kpi.GET("/categories/:slug", h.Dashboard.Category)
		kpi.GET("/categories/:slug/export", h.Dashboard.Export)
		kpi.POST("/cache/invalidate", middleware.RequirePermission(PermInvalidate), h.Dashboard.Invalidate)
	}
}

// FilterQuery 看板筛选参数
type FilterQuery struct {
	PlantID string `form:"plant_id" binding:"omitempty,max=32"`
	FlowID  string `form:"flow_id" binding:"omitempty,max=32"`
	Status  string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE DRAFT ALL"`
}

func (q FilterQuery) Filters() repository.Filters {
	return repository.Filters{PlantID: q.PlantID, FlowID: q.FlowID, Status: q.Status}
}

// CategoryURI 分类路径参数
type CategoryURI struct {
	Slug string `uri:"slug" binding:"required,max=128,excludes=0x7C"`
}

// InvalidateRequest 清除缓存请求，scope 为空时清除全部
type InvalidateRequest struct {
	Scope string `json:"scope" binding:"omitempty,max=160"`
}

// Global 全局看板
// GET /api/v1/kpi/global?plant_id=&flow_id=&status=
func (h *DashboardHandler) Global(c *gin.Context) {
	var q FilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, "invalid filters: "+err.Error())
		return
	}

	payload, err := h.svc.Global(c.Request.Context(), q.Filters())
	if err != nil {
		InternalError(c, "compute global dashboard: "+err.Error())
		return
	}
	Success(c, payload)
}

// Category 分类看板
// GET /api/v1/kpi/categories/:slug
func (h *DashboardHandler) Category(c *gin.Context) {
	slug, q, ok := bindCategory(c)
	if !ok {
		return
	}

	payload, err := h.svc.Category(c.Request.Context(), slug, q.Filters())
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			NotFound(c, "category not found: "+slug)
			return
		}
		InternalError(c, "compute category dashboard: "+err.Error())
		return
	}
	Success(c, payload)
}

// Export 导出分类看板明细
// GET /api/v1/kpi/categories/:slug/export
func (h *DashboardHandler) Export(c *gin.Context) {
	slug, q, ok := bindCategory(c)
	if !ok {
		return
	}

	f, filename, err := h.svc.ExportCategory(c.Request.Context(), slug, q.Filters())
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			NotFound(c, "category not found: "+slug)
			return
		}
		InternalError(c, "export category dashboard: "+err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

// Invalidate 清除看板缓存
// POST /api/v1/kpi/cache/invalidate {"scope": "category:galia"}
func (h *DashboardHandler) Invalidate(c *gin.Context) {
	var req InvalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validScope(req.Scope) {
		BadRequest(c, "scope must be empty, \"global\" or \"category:<slug>\"")
		return
	}

	if err := h.svc.Invalidate(c.Request.Context(), req.Scope); err != nil {
		InternalError(c, "invalidate cache: "+err.Error())
		return
	}
	Success(c, gin.H{"scope": req.Scope, "invalidated_by": GetUserID(c)})
}

func bindCategory(c *gin.Context) (string, FilterQuery, bool) {
	var uri CategoryURI
	if err := c.ShouldBindUri(&uri); err != nil {
		BadRequest(c, "invalid category: "+err.Error())
		return "", FilterQuery{}, false
	}
	var q FilterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		BadRequest(c, "invalid filters: "+err.Error())
		return "", FilterQuery{}, false
	}
	return uri.Slug, q, true
}

func validScope(scope string) bool {
	if scope == "" || scope == cache.GlobalScope {
		return true
	}
	slug, ok := strings.CutPrefix(scope, cache.CategoryScope(""))
	return ok && slug != "" && !strings.Contains(slug, cache.KeySeparator)
}
