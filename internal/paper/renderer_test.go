package paper

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"qbank_backend/internal/model"

	"github.com/google/go-cmp/cmp"
)

func TestPageBreaksAfter(t *testing.T) {
	tests := []struct {
		count, perPage int
		want           []int
	}{
		{7, 3, []int{3, 6}},
		{6, 3, []int{3}},
		{3, 3, nil},
		{1, 3, nil},
		{0, 3, nil},
		{5, 2, []int{2, 4}},
		{7, 0, []int{3, 6}},
	}
	for _, tt := range tests {
		got := PageBreaksAfter(tt.count, tt.perPage)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("PageBreaksAfter(%d, %d) (-want +got):\n%s", tt.count, tt.perPage, diff)
		}
	}
}

func TestFitImage(t *testing.T) {
	tests := []struct {
		name                   string
		srcW, srcH, maxW, maxH float64
		wantW, wantH           float64
	}{
		{"fits already", 50, 40, 120, 80, 50, 40},
		{"too tall", 100, 160, 120, 80, 50, 80},
		{"too wide after height cap", 400, 100, 120, 80, 120, 30},
		{"both too large", 300, 200, 120, 80, 120, 80},
		{"degenerate", 0, 10, 120, 80, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitImage(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if math.Abs(w-tt.wantW) > 1e-9 || math.Abs(h-tt.wantH) > 1e-9 {
				t.Fatalf("FitImage = (%v, %v), want (%v, %v)", w, h, tt.wantW, tt.wantH)
			}
			if tt.srcW > 0 && tt.srcH > 0 && math.Abs(w/h-tt.srcW/tt.srcH) > 1e-9 {
				t.Fatalf("aspect ratio changed: %v vs %v", w/h, tt.srcW/tt.srcH)
			}
		})
	}
}

func TestQuestionLine(t *testing.T) {
	if got := QuestionLine(4, model.Question{QuestionNumber: "17", QuestionText: " Define a graph. ", Marks: 2}); got != "4. Define a graph. (2 marks)" {
		t.Fatalf("got %q", got)
	}
	if got := QuestionLine(1, model.Question{QuestionText: "Define a tree.", Marks: 1}); got != "1. Define a tree. (1 mark)" {
		t.Fatalf("got %q", got)
	}
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 80, B: 160, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRender_SevenQuestions(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page_1_img_1.png")
	writeTestPNG(t, imgPath)

	var questions []model.Question
	for i := 1; i <= 7; i++ {
		q := model.Question{QuestionText: fmt.Sprintf("Define term number %d in one sentence.", i), Marks: i}
		if i == 2 {
			q.ImagePaths = []string{imgPath, filepath.Join(dir, "missing.png")}
		}
		questions = append(questions, q)
	}

	opts := DefaultOptions()
	opts.FontPath = filepath.Join(dir, "no-such-font.ttf")
	r := NewRenderer(opts)

	out := filepath.Join(dir, "paper.pdf")
	res, err := r.Render(out, Header{
		Title:       "Data Structures - Question Paper",
		Subject:     "Data Structures",
		Units:       []string{"Linear Structures"},
		TotalMarks:  28,
		GeneratedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}, questions)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if diff := cmp.Diff([]int{3, 6}, res.PageBreaks); diff != "" {
		t.Errorf("page breaks (-want +got):\n%s", diff)
	}
	if res.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", res.PageCount)
	}
	wantSkipped := []string{"font:" + opts.FontPath, "image:" + filepath.Join(dir, "missing.png")}
	if diff := cmp.Diff(wantSkipped, res.Skipped); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		t.Fatalf("output not written: %v", err)
	}
}

func TestInstructions(t *testing.T) {
	got := Instructions(50, 90)
	if got[3] != "Time allowed: 1 h 30 min." || got[4] != "Total marks: 50." {
		t.Fatalf("got %v", got)
	}
	if formatDuration(180) != "3 hours" || formatDuration(60) != "1 hour" || formatDuration(45) != "45 minutes" {
		t.Fatal("formatDuration")
	}
}
