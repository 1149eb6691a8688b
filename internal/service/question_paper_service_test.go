package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"qbank_backend/internal/config"
	"qbank_backend/internal/model"
	"qbank_backend/internal/paper"
	"qbank_backend/internal/repository"
	"qbank_backend/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
)

type paperFixture struct {
	db        *gorm.DB
	taxonomy  testutil.Taxonomy
	svc       *QuestionPaperService
	outputDir string
	storeDir  string
}

func newPaperFixture(t *testing.T) *paperFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &paperFixture{
		db:        db,
		taxonomy:  testutil.SeedTaxonomy(t, db),
		outputDir: t.TempDir(),
		storeDir:  t.TempDir(),
	}
	f.svc = NewQuestionPaperService(
		repository.NewQuestionRepository(db),
		repository.NewTaxonomyRepository(db),
		repository.NewGeneratedPaperRepository(db),
		NewStorageService(&config.StorageConfig{Type: "local", LocalPath: f.storeDir}),
		PaperOptions{OutputDir: f.outputDir, DurationMinutes: 120, Layout: paper.DefaultOptions()},
	)
	return f
}

func question(text string, marks int, level string) model.Question {
	return model.Question{QuestionText: text, Marks: marks, DifficultyLevel: level, QuestionType: "Short Answer"}
}

// seedScenarioPool stores five 2-mark easy, three 3-mark medium and one 2-mark hard
// question in an approved document.
func (f *paperFixture) seedScenarioPool(t *testing.T) {
	t.Helper()
	testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewApproved,
		question("easy 1", 2, model.DifficultyEasy),
		question("easy 2", 2, model.DifficultyEasy),
		question("easy 3", 2, model.DifficultyEasy),
		question("easy 4", 2, model.DifficultyEasy),
		question("easy 5", 2, model.DifficultyEasy),
		question("medium 1", 3, model.DifficultyMedium),
		question("medium 2", 3, model.DifficultyMedium),
		question("medium 3", 3, model.DifficultyMedium),
		question("hard 1", 2, model.DifficultyHard),
	)
}

func texts(qs []model.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.QuestionText)
	}
	return out
}

func TestGeneratePaper_BucketScenario(t *testing.T) {
	f := newPaperFixture(t)
	f.seedScenarioPool(t)

	res, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:              f.taxonomy.Subject.ID,
		TotalMarks:             10,
		DifficultyDistribution: &model.DifficultyDistribution{Easy: 0.5, Medium: 0.3, Hard: 0.2},
	})
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"easy 1", "easy 2", "medium 1", "hard 1"}, texts(res.Questions)); diff != "" {
		t.Fatalf("selection (-want +got):\n%s", diff)
	}

	p := res.Paper
	if p.ID == 0 || p.SelectedMarks != 9 || p.TotalMarks != 10 || p.DurationMinutes != 120 || p.PageCount != 2 {
		t.Fatalf("paper record = %+v", p)
	}
	if p.Title != "Data Structures Question Paper" {
		t.Fatalf("title = %q", p.Title)
	}
	if got := p.DifficultyDistribution.Data(); got.Easy != 0.5 || got.Hard != 0.2 {
		t.Fatalf("distribution = %+v", got)
	}

	if !regexp.MustCompile(`^question_paper_\d{8}_\d{6}_[0-9a-f]{8}\.pdf$`).MatchString(res.Filename) {
		t.Fatalf("filename = %q", res.Filename)
	}
	if _, err := os.Stat(res.FilePath); err != nil {
		t.Fatalf("rendered file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.storeDir, PaperKeyPrefix, res.Filename)); err != nil {
		t.Fatalf("published copy: %v", err)
	}
	if p.FileURL != "/uploads/"+PaperKeyPrefix+"/"+res.Filename {
		t.Fatalf("url = %q", p.FileURL)
	}

	stored, err := f.svc.GetPaper(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.QuestionIDs) != 4 {
		t.Fatalf("stored question ids = %v", stored.QuestionIDs)
	}
}

func TestGeneratePaper_OnlyApprovedPositiveMarks(t *testing.T) {
	f := newPaperFixture(t)
	testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewPending,
		question("from pending review", 1, model.DifficultyEasy))
	testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewRejected,
		question("from rejected doc", 1, model.DifficultyEasy))
	approved := testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewApproved,
		question("usable", 1, model.DifficultyEasy),
		question("zero marks", 1, model.DifficultyEasy))
	if err := f.db.Model(&model.Question{}).Where("id = ?", approved.Questions[1].ID).Update("marks", 0).Error; err != nil {
		t.Fatal(err)
	}

	other := model.Subject{Name: "Networks"}
	f.db.Create(&other)
	testutil.SeedDocument(t, f.db, other.ID, model.ReviewApproved, question("other subject", 1, model.DifficultyEasy))

	res, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:  f.taxonomy.Subject.ID,
		TotalMarks: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"usable"}, texts(res.Questions)); diff != "" {
		t.Fatalf("selection (-want +got):\n%s", diff)
	}
	if res.Paper.SelectedMarks != 1 {
		t.Fatalf("partial paper marks = %d", res.Paper.SelectedMarks)
	}
}

func TestGeneratePaper_UnitAndTopicFilters(t *testing.T) {
	f := newPaperFixture(t)
	linear, trees := f.taxonomy.Units[0].ID, f.taxonomy.Units[1].ID
	stacks := f.taxonomy.Topics[0].ID

	q1 := question("stack question", 2, model.DifficultyEasy)
	q1.UnitID, q1.TopicID = &linear, &stacks
	q2 := question("tree question", 2, model.DifficultyEasy)
	q2.UnitID = &trees
	q3 := question("uncategorized", 2, model.DifficultyEasy)
	testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewApproved, q1, q2, q3)

	res, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:  f.taxonomy.Subject.ID,
		UnitIDs:    []uint{trees},
		TotalMarks: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"tree question"}, texts(res.Questions)); diff != "" {
		t.Fatalf("unit filter (-want +got):\n%s", diff)
	}

	res, err = f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:  f.taxonomy.Subject.ID,
		TopicIDs:   []uint{stacks},
		TotalMarks: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"stack question"}, texts(res.Questions)); diff != "" {
		t.Fatalf("topic filter (-want +got):\n%s", diff)
	}
}

func TestGeneratePaper_NothingToGenerate(t *testing.T) {
	f := newPaperFixture(t)

	_, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:  f.taxonomy.Subject.ID,
		TotalMarks: 10,
	})
	if !errors.Is(err, ErrNoQuestionsSelected) {
		t.Fatalf("err = %v, want ErrNoQuestionsSelected", err)
	}

	_, err = f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{SubjectID: 999, TotalMarks: 10})
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("err = %v, want ErrSubjectNotFound", err)
	}

	entries, _ := os.ReadDir(f.outputDir)
	if len(entries) != 0 {
		t.Fatalf("files written for empty selection: %d", len(entries))
	}
}

func TestGeneratePaper_SkipsMissingImages(t *testing.T) {
	f := newPaperFixture(t)
	q := question("Label the parts of the diagram shown", 3, model.DifficultyEasy)
	q.ImagePaths = []string{filepath.Join(t.TempDir(), "gone.png")}
	testutil.SeedDocument(t, f.db, f.taxonomy.Subject.ID, model.ReviewApproved, q)

	res, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{
		SubjectID:  f.taxonomy.Subject.ID,
		TotalMarks: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || res.Paper.PageCount != 1 {
		t.Fatalf("skipped = %v, pages = %d", res.Skipped, res.Paper.PageCount)
	}
}

func TestValidateDistribution(t *testing.T) {
	tests := []struct {
		name string
		d    *model.DifficultyDistribution
		ok   bool
	}{
		{"nil means default", nil, true},
		{"exact", &model.DifficultyDistribution{Easy: 0.3, Medium: 0.5, Hard: 0.2}, true},
		{"hand typed thirds", &model.DifficultyDistribution{Easy: 0.34, Medium: 0.33, Hard: 0.33}, true},
		{"negative", &model.DifficultyDistribution{Easy: -0.2, Medium: 1, Hard: 0.2}, false},
		{"over one", &model.DifficultyDistribution{Easy: 0.5, Medium: 0.5, Hard: 0.5}, false},
		{"all zero", &model.DifficultyDistribution{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDistribution(tt.d)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestPaperFilename_Unique(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	a, b := PaperFilename(now), PaperFilename(now)
	if a == b {
		t.Fatalf("same filename twice: %s", a)
	}
	if a[:len("question_paper_20240301_093000_")] != "question_paper_20240301_093000_" {
		t.Fatalf("filename = %s", a)
	}
}

func TestDownloadPath(t *testing.T) {
	f := newPaperFixture(t)
	f.seedScenarioPool(t)
	res, err := f.svc.GeneratePaper(context.Background(), GeneratePaperRequest{SubjectID: f.taxonomy.Subject.ID, TotalMarks: 6})
	if err != nil {
		t.Fatal(err)
	}

	local, _, err := f.svc.DownloadPath(res.Paper.ID)
	if err != nil || local != res.FilePath {
		t.Fatalf("DownloadPath = (%q, %v)", local, err)
	}

	os.Remove(res.FilePath)
	local, url, err := f.svc.DownloadPath(res.Paper.ID)
	if err != nil || local != "" || url != res.Paper.FileURL {
		t.Fatalf("after removal DownloadPath = (%q, %q, %v)", local, url, err)
	}

	if _, _, err := f.svc.DownloadPath(12345); !errors.Is(err, ErrPaperNotFound) {
		t.Fatalf("err = %v", err)
	}
}
