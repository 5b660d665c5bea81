package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"legalrag-backend/internal/bootstrap"
	"legalrag-backend/internal/transport/http/response"
)

type ServerHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewServerHandler(app *bootstrap.App) *ServerHandler {
	return &ServerHandler{app: app}
}

// Health is the liveness probe. It answers as long as the process runs;
// dependency state is reported by Status.
func (h *ServerHandler) Health(c *gin.Context) {
	response.OK(c, "ok")
}

func (h *ServerHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response.OK(c, gin.H{
		"app":       h.app.Config.App.Name,
		"env":       h.app.Config.App.Env,
		"uptimeSec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"openai":   h.checkOpenAI(),
			"pinecone": h.checkPinecone(),
			"mysql":    h.checkMySQL(ctx),
			"redis":    h.checkRedis(ctx),
			"rabbitmq": h.checkRabbitMQ(),
		},
	})
}

func (h *ServerHandler) checkOpenAI() dependencyStatus {
	if !h.app.Embedder.Ready() {
		return dependencyStatus{OK: false, Message: "api key not configured"}
	}
	return dependencyStatus{OK: true}
}

func (h *ServerHandler) checkPinecone() dependencyStatus {
	if !h.app.Pinecone.Ready() {
		return dependencyStatus{OK: false, Message: "api key not configured"}
	}
	return dependencyStatus{OK: true}
}

func (h *ServerHandler) checkMySQL(ctx context.Context) dependencyStatus {
	if h.app.MySQL == nil {
		return dependencyStatus{OK: false, Message: "not connected"}
	}
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *ServerHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{OK: false, Message: "not connected"}
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *ServerHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "not connected"}
	}
	return dependencyStatus{OK: true}
}
