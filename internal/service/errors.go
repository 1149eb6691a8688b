package service

import "errors"

var (
	ErrDocumentNotFound     = errors.New("question document not found")
	ErrExtractionInProgress = errors.New("extraction already queued or running")
	ErrAlreadyExtracted     = errors.New("document already extracted")
	ErrExtractionBusy       = errors.New("extraction queue is full, try again later")
	ErrSubjectNotFound      = errors.New("subject not found")
	ErrUnitNotFound         = errors.New("unit not found")
	ErrPaperNotFound        = errors.New("question paper not found")
	ErrInvalidReviewStatus  = errors.New("review status must be approved, rejected or pending")
	ErrInvalidDocument      = errors.New("only PDF documents are accepted")
	ErrInvalidDocumentType  = errors.New("unknown document type")

	// ErrNoQuestionsSelected means the filter matched no usable question. It is the
	// "nothing to generate" outcome, distinct from a failure while generating.
	ErrNoQuestionsSelected = errors.New("no questions available for the requested filter")
)
