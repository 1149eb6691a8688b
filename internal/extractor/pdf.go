package extractor

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNoPages = errors.New("document has no pages")

// ExtractedImage is a raster image saved to disk from one page.
type ExtractedImage struct {
	Path       string
	Filename   string
	PageNumber int
	Index      int
	Width      int
	Height     int
}

// Document is an open source document. Page numbers are 1-based.
type Document interface {
	NumPages() int
	PageText(pageNumber int) (string, error)
	PageImages(pageNumber int, dir string) ([]ExtractedImage, error)
	Close() error
}

type Opener interface {
	Open(path string) (Document, error)
}

type OpenerFunc func(path string) (Document, error)

func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }

// PDFOpener reads text with ledongthuc/pdf and embedded images with pdfcpu.
type PDFOpener struct{}

func (PDFOpener) Open(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	if r.NumPage() == 0 {
		f.Close()
		return nil, ErrNoPages
	}
	return &pdfDocument{path: path, file: f, reader: r}, nil
}

type pdfDocument struct {
	path   string
	file   *os.File
	reader *pdf.Reader

	once   sync.Once
	ctx    *model.Context
	ctxErr error
}

func (d *pdfDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// PageText returns the page text one visual row per line.
func (d *pdfDocument) PageText(pageNumber int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read page %d: %v", pageNumber, r)
		}
	}()

	p := d.reader.Page(pageNumber)
	if p.V.IsNull() {
		return "", nil
	}

	rows, err := p.GetTextByRow()
	if err != nil || len(rows) == 0 {
		return p.GetPlainText(nil)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position > rows[j].Position })

	var b strings.Builder
	for _, row := range rows {
		words := row.Content
		sort.SliceStable(words, func(i, j int) bool { return words[i].X < words[j].X })

		var line strings.Builder
		lastEnd := 0.0
		for i, w := range words {
			if i > 0 && needsSpace(line.String(), w.S, w.X-lastEnd, w.FontSize) {
				line.WriteByte(' ')
			}
			line.WriteString(w.S)
			lastEnd = w.X + w.W
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func needsSpace(prev, next string, gap, fontSize float64) bool {
	if strings.HasSuffix(prev, " ") || strings.HasPrefix(next, " ") {
		return false
	}
	if fontSize <= 0 {
		fontSize = 10
	}
	return gap > fontSize*0.15
}

func (d *pdfDocument) pdfcpuContext() (*model.Context, error) {
	d.once.Do(func() {
		f, err := os.Open(d.path)
		if err != nil {
			d.ctxErr = err
			return
		}
		defer f.Close()
		d.ctx, d.ctxErr = api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	})
	return d.ctx, d.ctxErr
}

// PageImages writes every decodable raster image of the page to dir as
// page_<n>_img_<k>.png. Images in color spaces or formats that cannot be
// re-encoded are skipped. Bounding boxes are not available from the image
// dictionaries and are left nil.
func (d *pdfDocument) PageImages(pageNumber int, dir string) (out []ExtractedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract images of page %d: %v", pageNumber, r)
		}
	}()

	ctx, err := d.pdfcpuContext()
	if err != nil {
		return nil, fmt.Errorf("parse pdf structure: %w", err)
	}
	images, err := pdfcpu.ExtractPageImages(ctx, pageNumber, false)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, nil
	}

	objNrs := make([]int, 0, len(images))
	for nr := range images {
		objNrs = append(objNrs, nr)
	}
	sort.Ints(objNrs)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	k := 0
	for _, nr := range objNrs {
		img := images[nr]
		if !supportedImage(img) {
			continue
		}
		decoded, err := decodeImage(img)
		if err != nil {
			continue
		}
		k++
		name := fmt.Sprintf("page_%d_img_%d.png", pageNumber, k)
		path := filepath.Join(dir, name)
		if err := writePNG(path, decoded); err != nil {
			return out, err
		}
		bounds := decoded.Bounds()
		out = append(out, ExtractedImage{
			Path:       path,
			Filename:   name,
			PageNumber: pageNumber,
			Index:      k,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}
	return out, nil
}

func supportedImage(img model.Image) bool {
	switch img.Cs {
	case "DeviceCMYK", "Separation", "DeviceN":
		return false
	}
	switch strings.ToLower(img.FileType) {
	case "png", "jpg", "jpeg":
		return img.Reader != nil
	}
	return false
}

func decodeImage(img model.Image) (image.Image, error) {
	switch strings.ToLower(img.FileType) {
	case "jpg", "jpeg":
		return jpeg.Decode(img.Reader)
	default:
		return png.Decode(img.Reader)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
