package controller

import (
	"context"
	"net/http"
	"time"

	"qbank_backend/internal/util"
	"qbank_backend/pkg/workqueue"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
	Queue *workqueue.Queue
}

// NewHealthController accepts a nil redis client when redis is disabled.
func NewHealthController(db *gorm.DB, rdb *redis.Client, queue *workqueue.Queue) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Queue: queue}
}

func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}

	if err := sqlDB.Ping(); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	if c.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			util.Error(ctx, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
		components["redis"] = "up"
	}

	data := gin.H{
		"status":     "ok",
		"components": components,
	}
	if c.Queue != nil {
		data["extractionQueue"] = c.Queue.Len()
	}
	util.Success(ctx, data)
}
