package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"luxscaler/internal/models/request_models"
	"luxscaler/internal/services"
	"luxscaler/pkg/middleware"
	"luxscaler/pkg/utils"
)

type GenerationController struct {
	generationService services.GenerationService
}

func NewGenerationController(generationService services.GenerationService) *GenerationController {
	return &GenerationController{generationService: generationService}
}

// CreateGeneration godoc
// @Summary Enhance an image
// @Description Charges the generation cost, runs the configured enhancer and stores the output
// @Tags Generations
// @Accept json
// @Produce json
// @Param request body request_models.CreateGenerationRequest true "Image payload"
// @Success 200 {object} utils.APIResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Security BearerAuth
// @Router /generations [post]
func (g *GenerationController) CreateGeneration(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, utils.ErrUnauthorized.Error())
		return
	}

	var req request_models.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	out, err := g.generationService.Create(c.Request.Context(), accountID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Generation completed")
}

// ListGenerations godoc
// @Summary List my generations
// @Tags Generations
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /generations [get]
func (g *GenerationController) ListGenerations(c *gin.Context) {
	accountID, ok := middleware.AccountID(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, utils.ErrUnauthorized.Error())
		return
	}

	var page request_models.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "page and page_size must be positive, page_size at most 100")
		return
	}

	out, err := g.generationService.List(c.Request.Context(), accountID, page)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, out, "Generations fetched successfully")
}
