package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/domain"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/core/port"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/pubsub"
	"github.com/Brand-Beacon/Sepulki-sub002/internal/transport/http/middleware"
)

const (
	fleetOverviewCacheKey = "fleet:overview"
	fleetOverviewCacheTTL = 30 * time.Second
	breachDebounceWindow  = 30 * time.Second
)

// FleetHandler exposes the gated fleet surface: overview and robot queries,
// status publications onto the event bus, and cache maintenance.
type FleetHandler struct {
	robots    port.RobotRepository
	cache     port.Cache
	bus       port.EventBus
	debouncer *pubsub.Debouncer
	logger    *zap.Logger
	now       func() time.Time
}

// NewFleetHandler constructs FleetHandler.
func NewFleetHandler(robots port.RobotRepository, cache port.Cache, bus port.EventBus, debouncer *pubsub.Debouncer, logger *zap.Logger) *FleetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FleetHandler{
		robots:    robots,
		cache:     cache,
		bus:       bus,
		debouncer: debouncer,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes binds the fleet routes with their permission gates.
func (h *FleetHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/overview", middleware.RequirePermission(domain.PermissionViewFleet), h.overview)
	r.GET("/robots", middleware.RequirePermission(domain.PermissionViewFleet), h.listRobots)
	r.GET("/robots/:id", middleware.RequirePermission(domain.PermissionViewFleet), h.getRobot)

	r.POST("/robots/:id/status", middleware.RequirePermission(domain.PermissionManageFleet), h.publishRobotStatus)
	r.POST("/tasks/:id/status", middleware.RequirePermission(domain.PermissionAssignTask), h.publishTaskUpdate)
	r.POST("/policy-breaches", middleware.RequirePermission(domain.PermissionManageRobots), h.reportPolicyBreach)

	r.POST("/cache/invalidate", middleware.RequirePermission(domain.PermissionManageFleet), h.invalidateCache)
}

func (h *FleetHandler) overview(c *gin.Context) {
	ctx := c.Request.Context()

	if cached, err := h.cache.Get(ctx, fleetOverviewCacheKey); err == nil && cached != nil {
		c.Data(http.StatusOK, "application/json", cached)
		return
	}

	overview, err := h.robots.Overview(ctx)
	if err != nil {
		RespondWithError(c, domain.NewServiceError("fleet", "fleet overview unavailable").WithCause(err))
		return
	}

	body, err := json.Marshal(overview)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	if err := h.cache.Set(ctx, fleetOverviewCacheKey, body, fleetOverviewCacheTTL); err != nil {
		h.logger.Warn("cache fleet overview failed", zap.Error(err))
	}

	c.Data(http.StatusOK, "application/json", body)
}

func (h *FleetHandler) listRobots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	robots, err := h.robots.List(c.Request.Context(), limit, offset)
	if err != nil {
		RespondWithError(c, domain.NewServiceError("fleet", "robot listing unavailable").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"robots": robots})
}

func (h *FleetHandler) getRobot(c *gin.Context) {
	id := c.Param("id")

	robot, err := h.robots.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondWithError(c, mapRepositoryError(err, "robot", id))
		return
	}

	c.JSON(http.StatusOK, robot)
}

func (h *FleetHandler) publishRobotStatus(c *gin.Context) {
	id := c.Param("id")

	var req StatusPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			NewErrorResponse(c, domain.CodeValidation, "status is required"))
		return
	}

	event := domain.RobotStatusEvent{
		RobotID:   id,
		FleetID:   req.FleetID,
		Status:    req.Status,
		Battery:   req.Battery,
		UpdatedAt: h.now().UTC().Format(time.RFC3339),
	}

	if err := h.bus.Publish(c.Request.Context(), domain.ChannelRobotStatus, "robot.status", event); err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, PublishResponse{
		Published: true,
		Channel:   string(domain.ChannelRobotStatus),
	})
}

func (h *FleetHandler) publishTaskUpdate(c *gin.Context) {
	id := c.Param("id")

	var req StatusPublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			NewErrorResponse(c, domain.CodeValidation, "status is required"))
		return
	}

	event := domain.TaskEvent{
		TaskID:  id,
		FleetID: req.FleetID,
		Status:  req.Status,
	}

	if err := h.bus.Publish(c.Request.Context(), domain.ChannelTaskUpdates, "task.update", event); err != nil {
		RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, PublishResponse{
		Published: true,
		Channel:   string(domain.ChannelTaskUpdates),
	})
}

// reportPolicyBreach publishes an edict violation onto the breach channel. A
// repeat of the same (robot, edict) pair within the debounce window is
// acknowledged without another publication.
func (h *FleetHandler) reportPolicyBreach(c *gin.Context) {
	var req PolicyBreachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			NewErrorResponse(c, domain.CodeValidation, "robot_id, edict_id and severity are required"))
		return
	}

	event := domain.PolicyBreachEvent{
		BreachID: uuid.NewString(),
		EdictID:  req.EdictID,
		RobotID:  req.RobotID,
		Severity: req.Severity,
		Detail:   req.Detail,
	}

	key := "breach:" + req.RobotID + ":" + req.EdictID
	var publishErr error
	fired := h.debouncer.Fire(key, breachDebounceWindow, func() {
		publishErr = h.bus.Publish(c.Request.Context(), domain.ChannelPolicyBreach, "policy.breach", event)
	})
	if publishErr != nil {
		RespondWithError(c, publishErr)
		return
	}

	c.JSON(http.StatusAccepted, PublishResponse{
		Published: fired,
		Debounced: !fired,
		Channel:   string(domain.ChannelPolicyBreach),
	})
}

func (h *FleetHandler) invalidateCache(c *gin.Context) {
	var req InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest,
			NewErrorResponse(c, domain.CodeValidation, "pattern is required"))
		return
	}

	removed, err := h.cache.InvalidatePattern(c.Request.Context(), req.Pattern)
	if err != nil {
		RespondWithError(c, domain.NewServiceError("cache", "invalidation failed").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, InvalidateCacheResponse{Removed: removed})
}
