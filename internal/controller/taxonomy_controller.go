package controller

import (
	"qbank_backend/internal/service"
	"qbank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TaxonomyController seeds the subject/unit/topic tree used for categorization.
type TaxonomyController struct {
	TaxonomyService *service.TaxonomyService
}

func NewTaxonomyController(taxonomyService *service.TaxonomyService) *TaxonomyController {
	return &TaxonomyController{TaxonomyService: taxonomyService}
}

type subjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type unitRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

type topicRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (c *TaxonomyController) CreateSubject(ctx *gin.Context) {
	var req subjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	subject, err := c.TaxonomyService.CreateSubject(req.Name, req.Code, req.Description)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

func (c *TaxonomyController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.TaxonomyService.ListSubjects()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

func (c *TaxonomyController) CreateUnit(ctx *gin.Context) {
	subjectID, ok := paramID(ctx)
	if !ok {
		return
	}
	var req unitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	unit, err := c.TaxonomyService.CreateUnit(subjectID, req.Name, req.Description, req.Order)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, unit)
}

func (c *TaxonomyController) CreateTopic(ctx *gin.Context) {
	unitID, ok := paramID(ctx)
	if !ok {
		return
	}
	var req topicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	topic, err := c.TaxonomyService.CreateTopic(unitID, req.Name, req.Description)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, topic)
}

func (c *TaxonomyController) Tree(ctx *gin.Context) {
	subjectID, ok := paramID(ctx)
	if !ok {
		return
	}
	subject, err := c.TaxonomyService.Tree(subjectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, subject)
}
