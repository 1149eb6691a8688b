package controller

import (
	"io"
	"strconv"

	"qbank_backend/internal/repository"
	"qbank_backend/internal/service"
	"qbank_backend/internal/util"
	"qbank_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QuestionDocumentController struct {
	DocumentService   *service.QuestionDocumentService
	ExtractionService *service.ExtractionService
}

func NewQuestionDocumentController(documentService *service.QuestionDocumentService, extractionService *service.ExtractionService) *QuestionDocumentController {
	return &QuestionDocumentController{
		DocumentService:   documentService,
		ExtractionService: extractionService,
	}
}

// Upload stores a PDF and, unless autoExtract=false, queues its extraction.
// Form fields: file, subjectId, title, documentType, academicYear, semester, autoExtract.
func (c *QuestionDocumentController) Upload(ctx *gin.Context) {
	subjectID := util.MustParseUint(ctx.PostForm("subjectId"))
	if subjectID == 0 {
		util.BadRequest(ctx, "subjectId is required")
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if header.Size > util.MaxUploadSize {
		util.BadRequest(ctx, "file exceeds the upload limit")
		return
	}
	if !util.IsPDF(header.Filename) {
		util.BadRequest(ctx, service.ErrInvalidDocument.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		util.BadRequest(ctx, "cannot read uploaded file")
		return
	}
	defer file.Close()

	if _, err := util.ValidateMimeType(file, []string{util.MimePDF}); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	doc, err := c.DocumentService.Upload(ctx.Request.Context(), service.UploadDocumentInput{
		Title:            ctx.PostForm("title"),
		SubjectID:        subjectID,
		DocumentType:     ctx.PostForm("documentType"),
		AcademicYear:     ctx.PostForm("academicYear"),
		Semester:         ctx.PostForm("semester"),
		OriginalFilename: header.Filename,
		Size:             header.Size,
		Content:          file,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	autoExtract := true
	if v := ctx.PostForm("autoExtract"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			autoExtract = b
		}
	}

	data := gin.H{"document": doc, "extractionQueued": false}
	if autoExtract {
		if err := c.ExtractionService.StartExtraction(ctx.Request.Context(), doc.ID); err != nil {
			// the upload stands; extraction can be retried through /extract
			logger.Log.Warn("Failed to queue extraction after upload",
				zap.Uint("documentId", doc.ID),
				zap.Error(err))
			data["extractionError"] = err.Error()
		} else {
			data["extractionQueued"] = true
		}
	}
	util.Created(ctx, data)
}

func (c *QuestionDocumentController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	docs, total, err := c.DocumentService.List(repository.DocumentFilter{
		SubjectID:        util.MustParseUint(ctx.Query("subjectId")),
		Status:           ctx.Query("status"),
		ExtractionStatus: ctx.Query("extractionStatus"),
		Page:             page,
		PageSize:         limit,
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: docs, Total: total, Page: page, Limit: limit})
}

func (c *QuestionDocumentController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	doc, err := c.DocumentService.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, doc)
}

// StartExtraction answers 202 with the pending snapshot; progress is polled through Status.
func (c *QuestionDocumentController) StartExtraction(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	if err := c.ExtractionService.StartExtraction(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	snap, err := c.ExtractionService.GetStatus(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Accepted(ctx, snap)
}

func (c *QuestionDocumentController) Status(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	snap, err := c.ExtractionService.GetStatus(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, snap)
}

func (c *QuestionDocumentController) Questions(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	questions, err := c.DocumentService.Questions(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"list": questions, "total": len(questions)})
}

type reviewRequest struct {
	Status string `json:"status" binding:"required"`
}

func (c *QuestionDocumentController) Review(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	var req reviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	doc, err := c.DocumentService.Review(id, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, doc)
}

func (c *QuestionDocumentController) Recategorize(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	res, err := c.ExtractionService.Recategorize(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

func (c *QuestionDocumentController) Delete(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	if err := c.DocumentService.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
