package controller

import (
	"errors"
	"net/http"

	"qbank_backend/internal/service"
	"qbank_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to the JSON envelope. Anything unknown is a 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrSubjectNotFound),
		errors.Is(err, service.ErrUnitNotFound),
		errors.Is(err, service.ErrPaperNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrExtractionInProgress),
		errors.Is(err, service.ErrAlreadyExtracted):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, service.ErrExtractionBusy):
		util.Error(ctx, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidDistribution),
		errors.Is(err, service.ErrInvalidReviewStatus),
		errors.Is(err, service.ErrInvalidDocument),
		errors.Is(err, service.ErrInvalidDocumentType),
		errors.Is(err, service.ErrNameRequired):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, service.ErrNoQuestionsSelected):
		util.UnprocessableEntity(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// paramID parses the :id path parameter, answering 400 when it is not a positive integer.
func paramID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid id")
		return 0, false
	}
	return id, true
}
