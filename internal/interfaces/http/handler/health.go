package handler

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sourcegraph/conc/pool"
	"github.com/weatherbot/backend/internal/domain/entity"
	"github.com/weatherbot/backend/internal/infrastructure/config"
)

// pinger 可探活的依赖
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db       *sql.DB
	pipeline entity.Pipeline
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db *sql.DB, pipeline entity.Pipeline) *HealthHandler {
	return &HealthHandler{db: db, pipeline: pipeline}
}

// Health 健康检查，deep=true 时同时检查数据库与 NER 服务
// 单例锁依赖该接口判断已有实例是否存活
func (h *HealthHandler) Health(c *gin.Context) {
	result := gin.H{
		"status":  "ok",
		"service": "weatherbot",
		"version": config.Version,
	}
	if c.Query("deep") != "true" {
		c.JSON(http.StatusOK, result)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// 并发探测各依赖
	var mu sync.Mutex
	checks := gin.H{}
	healthy := true
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}

	p := pool.New().WithMaxGoroutines(2)
	if h.db != nil {
		p.Go(func() {
			record("database", h.db.PingContext(ctx))
		})
	}
	if pp, ok := h.pipeline.(pinger); ok {
		p.Go(func() {
			record("ner", pp.Ping(ctx))
		})
	}
	p.Wait()
	result["checks"] = checks

	if !healthy {
		result["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}
	c.JSON(http.StatusOK, result)
}
