package controller

import (
	"net/http"

	"qbank_backend/internal/service"
	"qbank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionPaperController struct {
	PaperService *service.QuestionPaperService
}

func NewQuestionPaperController(paperService *service.QuestionPaperService) *QuestionPaperController {
	return &QuestionPaperController{PaperService: paperService}
}

// Generate selects questions by difficulty and renders the paper PDF. A filter that
// matches nothing answers 422; a paper short of the requested marks is still 201.
func (c *QuestionPaperController) Generate(ctx *gin.Context) {
	var req service.GeneratePaperRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.PaperService.GeneratePaper(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{
		"paper":         res.Paper,
		"filename":      res.Filename,
		"downloadUrl":   res.Paper.FileURL,
		"questionCount": len(res.Questions),
		"selectedMarks": res.Paper.SelectedMarks,
		"skipped":       res.Skipped,
	})
}

func (c *QuestionPaperController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	p, err := c.PaperService.GetPaper(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// Download serves the local PDF, or redirects to object storage when only the
// published copy remains.
func (c *QuestionPaperController) Download(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	p, err := c.PaperService.GetPaper(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	local, url, err := c.PaperService.DownloadPath(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if local == "" {
		ctx.Redirect(http.StatusFound, url)
		return
	}
	ctx.Header("Content-Type", util.MimePDF)
	ctx.FileAttachment(local, p.Filename)
}
