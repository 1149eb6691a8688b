package paper

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"qbank_backend/internal/model"
	"qbank_backend/pkg/logger"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
)

const (
	DefaultQuestionsPerPage = 3
	DefaultMaxImageWidth    = 120.0
	DefaultMaxImageHeight   = 80.0
	DefaultDurationMinutes  = 180

	bodyFont     = "body"
	fallbackFont = "Helvetica"
	lineHeight   = 6.0
)

// Options are the layout knobs of the renderer. Sizes are in millimetres.
type Options struct {
	QuestionsPerPage int
	MaxImageWidth    float64
	MaxImageHeight   float64
	Watermark        string
	Copyright        string
	FontPath         string
}

func DefaultOptions() Options {
	return Options{
		QuestionsPerPage: DefaultQuestionsPerPage,
		MaxImageWidth:    DefaultMaxImageWidth,
		MaxImageHeight:   DefaultMaxImageHeight,
		Watermark:        "CONFIDENTIAL",
		Copyright:        "Question Bank. All rights reserved.",
	}
}

// Header is the metadata block printed above the questions.
type Header struct {
	Title           string
	Subject         string
	Units           []string
	Topics          []string
	TotalMarks      int
	DurationMinutes int
	GeneratedAt     time.Time
}

// RenderResult describes a rendered paper.
type RenderResult struct {
	Path       string
	PageCount  int
	PageBreaks []int
	Skipped    []string
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.QuestionsPerPage <= 0 {
		opts.QuestionsPerPage = def.QuestionsPerPage
	}
	if opts.MaxImageWidth <= 0 {
		opts.MaxImageWidth = def.MaxImageWidth
	}
	if opts.MaxImageHeight <= 0 {
		opts.MaxImageHeight = def.MaxImageHeight
	}
	return &Renderer{opts: opts}
}

// Render writes questions to path as a PDF. Missing images and an unusable font
// are reported in RenderResult.Skipped and never abort the document.
func (r *Renderer) Render(path string, h Header, questions []model.Question) (*RenderResult, error) {
	if h.GeneratedAt.IsZero() {
		h.GeneratedAt = time.Now()
	}
	if h.DurationMinutes <= 0 {
		h.DurationMinutes = DefaultDurationMinutes
	}

	res := &RenderResult{Path: path, PageBreaks: PageBreaksAfter(len(questions), r.opts.QuestionsPerPage)}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(h.Title, true)
	pdf.SetCreator("qbank", true)
	pdf.SetCreationDate(h.GeneratedAt)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	family, tr := r.loadFont(pdf, res)

	pdf.SetHeaderFunc(func() {
		r.drawWatermark(pdf, family, tr)
		pageW, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		half := (pageW - left - right) / 2

		pdf.SetFont(family, "B", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(half, 6, tr(h.Title), "", 0, "L", false, 0, "")
		pdf.CellFormat(half, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(4)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(family, "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 4, tr(r.opts.Copyright), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 4, "Generated "+h.GeneratedAt.Format("2006-01-02 15:04:05"), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()
	r.drawTitleBlock(pdf, family, tr, h)

	breakAfter := map[int]bool{}
	for _, n := range res.PageBreaks {
		breakAfter[n] = true
	}

	for i, q := range questions {
		n := i + 1
		pdf.SetFont(family, "", 11)
		pdf.MultiCell(0, lineHeight, tr(QuestionLine(n, q)), "", "L", false)
		pdf.Ln(2)

		for _, img := range q.ImagePaths {
			r.drawImage(pdf, img, res)
		}
		pdf.Ln(4)

		if breakAfter[n] {
			pdf.AddPage()
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("write paper: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("validate paper: %w", err)
	}
	res.PageCount = pages
	return res, nil
}

// QuestionLine formats a question with its sequential number and marks.
func QuestionLine(n int, q model.Question) string {
	unit := "marks"
	if q.Marks == 1 {
		unit = "mark"
	}
	return fmt.Sprintf("%d. %s (%d %s)", n, strings.TrimSpace(q.QuestionText), q.Marks, unit)
}

func Instructions(totalMarks, durationMinutes int) []string {
	return []string{
		"Answer all questions.",
		"Write your answers clearly and legibly.",
		"Figures in brackets indicate the marks for each question.",
		fmt.Sprintf("Time allowed: %s.", formatDuration(durationMinutes)),
		fmt.Sprintf("Total marks: %d.", totalMarks),
	}
}

func formatDuration(minutes int) string {
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%d minutes", m)
	case m == 0 && h == 1:
		return "1 hour"
	case m == 0:
		return fmt.Sprintf("%d hours", h)
	default:
		return fmt.Sprintf("%d h %d min", h, m)
	}
}

func (r *Renderer) loadFont(pdf *fpdf.Fpdf, res *RenderResult) (string, func(string) string) {
	if r.opts.FontPath != "" {
		if _, err := os.Stat(r.opts.FontPath); err == nil {
			pdf.AddUTF8Font(bodyFont, "", r.opts.FontPath)
			pdf.AddUTF8Font(bodyFont, "B", r.opts.FontPath)
			if pdf.Ok() {
				return bodyFont, func(s string) string { return s }
			}
			logger.Log.Warn("Font could not be registered, falling back",
				zap.String("font", r.opts.FontPath), zap.Error(pdf.Error()))
			pdf.ClearError()
		} else {
			logger.Log.Warn("Font file not found, falling back", zap.String("font", r.opts.FontPath))
		}
		res.Skipped = append(res.Skipped, "font:"+r.opts.FontPath)
	}
	return fallbackFont, pdf.UnicodeTranslatorFromDescriptor("")
}

func (r *Renderer) drawWatermark(pdf *fpdf.Fpdf, family string, tr func(string) string) {
	if r.opts.Watermark == "" {
		return
	}
	w, h := pdf.GetPageSize()
	pdf.SetFont(family, "B", 60)
	text := tr(r.opts.Watermark)
	tw := pdf.GetStringWidth(text)

	pdf.TransformBegin()
	pdf.SetAlpha(0.08, "Normal")
	pdf.SetTextColor(128, 128, 128)
	pdf.TransformRotate(45, w/2, h/2)
	pdf.Text(w/2-tw/2, h/2, text)
	pdf.SetAlpha(1, "Normal")
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)
}

func (r *Renderer) drawTitleBlock(pdf *fpdf.Fpdf, family string, tr func(string) string, h Header) {
	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 8, tr(h.Title), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 11)
	meta := []string{"Subject: " + h.Subject}
	if len(h.Units) > 0 {
		meta = append(meta, "Units: "+strings.Join(h.Units, ", "))
	}
	if len(h.Topics) > 0 {
		meta = append(meta, "Topics: "+strings.Join(h.Topics, ", "))
	}
	meta = append(meta, fmt.Sprintf("Total Marks: %d    Duration: %s", h.TotalMarks, formatDuration(h.DurationMinutes)))
	for _, line := range meta {
		pdf.CellFormat(0, lineHeight, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 11)
	pdf.CellFormat(0, lineHeight, "Instructions:", "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 10)
	for i, line := range Instructions(h.TotalMarks, h.DurationMinutes) {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%d. %s", i+1, line)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *Renderer) drawImage(pdf *fpdf.Fpdf, path string, res *RenderResult) {
	if _, err := os.Stat(path); err != nil {
		logger.Log.Warn("Question image missing, skipped", zap.String("image", path))
		res.Skipped = append(res.Skipped, "image:"+path)
		return
	}

	opts := fpdf.ImageOptions{ReadDpi: true}
	info := pdf.RegisterImageOptions(path, opts)
	if !pdf.Ok() || info == nil {
		logger.Log.Warn("Question image unreadable, skipped", zap.String("image", path), zap.Error(pdf.Error()))
		pdf.ClearError()
		res.Skipped = append(res.Skipped, "image:"+path)
		return
	}

	w, h := FitImage(info.Width(), info.Height(), r.opts.MaxImageWidth, r.opts.MaxImageHeight)
	if w <= 0 || h <= 0 {
		return
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+h > pageH-math.Max(bottom, 20) {
		pdf.AddPage()
	}

	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY()
	pdf.ImageOptions(path, left, y, w, h, false, opts, 0, "")
	pdf.SetY(y + h + 2)
}
