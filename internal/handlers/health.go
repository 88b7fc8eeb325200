package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prefeitura-rio/app-identidade/internal/logging"
	"github.com/prefeitura-rio/app-identidade/internal/utils"
	"go.uber.org/zap"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports whether the bot's dependencies are reachable
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *logging.SafeLogger
}

// NewHealthHandler creates a handler running checks by service name
func NewHealthHandler(checks map[string]HealthCheck, logger *logging.SafeLogger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 3 * time.Second,
		logger:  logger,
	}
}

// HealthCheck godoc
// @Summary Verificação de saúde
// @Description Verifica a saúde do bot e suas dependências (armazenamento e Redis). Retorna status detalhado para cada serviço.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse "Todos os serviços estão saudáveis"
// @Failure 503 {object} HealthResponse "Um ou mais serviços estão indisponíveis"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services:  make(map[string]string, len(h.checks)),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, span := utils.TraceExternalService(ctx, name, "ping")
		if err := h.checks[name](ctx); err != nil {
			utils.RecordErrorInSpan(span, err, map[string]interface{}{
				"service.name":      name,
				"service.operation": "ping",
			})
			h.logger.Warn("health check failed",
				zap.String("service", name),
				zap.Error(err))
			health.Status = "unhealthy"
			health.Services[name] = "unhealthy"
		} else {
			health.Services[name] = "healthy"
		}
		span.End()
	}

	if health.Status == "healthy" {
		c.JSON(http.StatusOK, health)
		return
	}
	c.JSON(http.StatusServiceUnavailable, health)
}
