package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"luxscaler/internal/models/request_models"
	"luxscaler/internal/models/response_models"
	"luxscaler/internal/services"
	"luxscaler/pkg/middleware"
	"luxscaler/pkg/utils"
)

type AdminController struct {
	adminService        services.AdminService
	provisioningService services.ProvisioningService
	notificationService services.NotificationService
}

func NewAdminController(
	adminService services.AdminService,
	provisioningService services.ProvisioningService,
	notificationService services.NotificationService,
) *AdminController {
	return &AdminController{
		adminService:        adminService,
		provisioningService: provisioningService,
		notificationService: notificationService,
	}
}

// ExecuteAction godoc
// @Summary Run an admin action
// @Description Dispatches {action, payload} to get_dashboard_stats, get_generations_log, get_session_details, approve_waitlist, delete_storage_files or delete_generation_force
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body request_models.AdminActionRequest true "Action envelope"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 401 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/actions [post]
func (a *AdminController) ExecuteAction(c *gin.Context) {
	var req request_models.AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	data, err := a.adminService.Execute(c.Request.Context(), middleware.Profile(c), services.AdminAction(req.Action), req.Payload)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, data, "")
}

// Onboard godoc
// @Summary Provision an account
// @Description Finds or creates the account, sets its token balance and emails an access link
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body request_models.OnboardRequest true "Onboarding payload"
// @Success 200 {object} response_models.OnboardResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/onboard [post]
func (a *AdminController) Onboard(c *gin.Context) {
	var req request_models.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "A valid email is required")
		return
	}

	actor := middleware.Profile(c)
	if actor == nil {
		utils.RespondError(c, http.StatusForbidden, utils.ErrForbidden.Error())
		return
	}

	res, err := a.provisioningService.Provision(c.Request.Context(), services.ProvisionRequest{
		Email:         req.Email,
		Name:          req.Name,
		InitialTokens: req.InitialTokens,
		ActorID:       actor.ID,
	})
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, response_models.OnboardResponse{
		Success: true,
		UserID:  res.UserID,
		Message: res.Message,
	})
}

// SendNotification godoc
// @Summary Send a notification email
// @Description LOW_BALANCE, SECURITY_ALERT or NEWSLETTER to user_id or recipient_email
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body request_models.NotificationRequest true "Notification payload"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Security BearerAuth
// @Router /notifications [post]
func (a *AdminController) SendNotification(c *gin.Context) {
	var req request_models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	kind, err := services.ParseNotificationKind(req.Type)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	n := services.Notification{Kind: kind, RecipientEmail: req.RecipientEmail, Data: req.Data}
	if req.UserID != "" {
		if n.UserID, err = uuid.Parse(req.UserID); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "user_id must be a UUID")
			return
		}
	}

	if err := a.notificationService.Dispatch(c.Request.Context(), n); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	utils.RespondSuccess(c, nil, "Notification sent")
}

// GetDashboard godoc
// @Summary Get dashboard report
// @Description KPI blocks plus new users, generations and purchased tokens series
// @Tags Admin
// @Produce json
// @Param start    query string false "RFC3339 start (e.g. 2025-10-01T00:00:00Z)"
// @Param end      query string false "RFC3339 end   (e.g. 2025-10-19T23:59:59Z)"
// @Param last_days query int   false "Relative lookback in days (mutually exclusive with start/end). Default 30"
// @Param interval query string false "Bucket size: day | week | month (default: day)"
// @Param tz       query string false "IANA timezone for bucketing (default: UTC)"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 500 {object} utils.APIResponse
// @Security BearerAuth
// @Router /admin/dashboard [get]
func (a *AdminController) GetDashboard(c *gin.Context) {
	interval := c.DefaultQuery("interval", "day")
	tz := c.Query("tz")

	switch interval {
	case "day", "week", "month":
	default:
		utils.RespondError(c, http.StatusBadRequest, "interval must be one of: day, week, month")
		return
	}
	if tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			utils.RespondError(c, http.StatusBadRequest, "unknown timezone")
			return
		}
	}

	startStr := c.Query("start")
	endStr := c.Query("end")
	lastDaysStr := c.Query("last_days")

	if lastDaysStr != "" && (startStr != "" || endStr != "") {
		utils.RespondError(c, http.StatusBadRequest, "provide either last_days or start/end (not both)")
		return
	}

	rng := response_models.TimeRange{Interval: interval, Timezone: tz}
	switch {
	case lastDaysStr != "":
		d, err := strconv.Atoi(lastDaysStr)
		if err != nil || d <= 0 {
			utils.RespondError(c, http.StatusBadRequest, "last_days must be a positive integer")
			return
		}
		rng.End = time.Now().UTC()
		rng.Start = rng.End.AddDate(0, 0, -d)
	default:
		var err error
		if startStr != "" {
			if rng.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
				utils.RespondError(c, http.StatusBadRequest, "start must be RFC3339")
				return
			}
		}
		if endStr != "" {
			if rng.End, err = time.Parse(time.RFC3339, endStr); err != nil {
				utils.RespondError(c, http.StatusBadRequest, "end must be RFC3339")
				return
			}
		}
	}

	report, err := a.adminService.BuildDashboard(c.Request.Context(), rng)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, report, "Dashboard fetched successfully")
}
