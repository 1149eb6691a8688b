package app

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"qbank_backend/internal/config"
	"qbank_backend/internal/model"
	"qbank_backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:      config.ServerConfig{Port: "0", Mode: "test"},
		Storage:     config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Extraction:  config.ExtractionConfig{Workers: 1, QueueSize: 4, ImageDir: t.TempDir()},
		Categorizer: config.CategorizerConfig{Threshold: 0.1},
		Paper:       config.PaperConfig{OutputDir: t.TempDir(), QuestionsPerPage: 3, DurationMinutes: 90},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*App, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	return New(cfg, db, nil), db
}

func call(t *testing.T, a *App, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", req.Method, req.URL, w.Body.String(), err)
		}
	}
	return w, env
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/question-documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	w, env := call(t, a, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(string(env.Data), `"database":"up"`) {
		t.Fatalf("health data = %s", env.Data)
	}
}

func TestTaxonomyEndpoints(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	w, env := call(t, a, jsonRequest(http.MethodPost, "/api/subjects", gin.H{"name": "Operating Systems", "code": "CS301"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("create subject = %d %s", w.Code, w.Body.String())
	}
	var subject model.Subject
	json.Unmarshal(env.Data, &subject)

	sid := strconv.Itoa(int(subject.ID))
	w, env = call(t, a, jsonRequest(http.MethodPost, "/api/subjects/"+sid+"/units", gin.H{"name": "Scheduling", "order": 1}))
	if w.Code != http.StatusCreated {
		t.Fatalf("create unit = %d %s", w.Code, w.Body.String())
	}
	var unit model.Unit
	json.Unmarshal(env.Data, &unit)

	w, _ = call(t, a, jsonRequest(http.MethodPost, "/api/units/"+strconv.Itoa(int(unit.ID))+"/topics", gin.H{"name": "Round Robin"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("create topic = %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, a, httptest.NewRequest(http.MethodGet, "/api/subjects/"+sid+"/taxonomy", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("tree = %d %s", w.Code, w.Body.String())
	}
	var tree model.Subject
	json.Unmarshal(env.Data, &tree)
	if len(tree.Units) != 1 || len(tree.Units[0].Topics) != 1 || tree.Units[0].Topics[0].Name != "Round Robin" {
		t.Fatalf("tree = %+v", tree)
	}

	w, _ = call(t, a, jsonRequest(http.MethodPost, "/api/subjects/999/units", gin.H{"name": "Nowhere"}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unit under missing subject = %d", w.Code)
	}
	w, _ = call(t, a, jsonRequest(http.MethodPost, "/api/subjects", gin.H{"code": "X"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("subject without name = %d", w.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	a, db := newTestApp(t, testConfig(t))
	tx := testutil.SeedTaxonomy(t, db)
	sid := strconv.Itoa(int(tx.Subject.ID))

	pdf := []byte("%PDF-1.4\n% test document\n")
	w, _ := call(t, a, uploadRequest(t, map[string]string{"subjectId": sid}, "notes.txt", pdf))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-pdf name = %d", w.Code)
	}
	w, _ = call(t, a, uploadRequest(t, map[string]string{"subjectId": sid}, "fake.pdf", []byte("just text, not a pdf")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-pdf content = %d", w.Code)
	}

	w, env := call(t, a, uploadRequest(t, map[string]string{
		"subjectId":   sid,
		"title":       "Midterm 2023",
		"autoExtract": "false",
	}, "midterm.pdf", pdf))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}
	var uploaded struct {
		Document         model.QuestionDocument `json:"document"`
		ExtractionQueued bool                   `json:"extractionQueued"`
	}
	json.Unmarshal(env.Data, &uploaded)
	doc := uploaded.Document
	if doc.ID == 0 || uploaded.ExtractionQueued || doc.ExtractionStatus != model.ExtractionPending || doc.Status != model.ReviewPending {
		t.Fatalf("uploaded = %+v", uploaded)
	}
	id := strconv.Itoa(int(doc.ID))

	// the queue is not running, so the job stays queued
	w, env = call(t, a, httptest.NewRequest(http.MethodPost, "/api/question-documents/"+id+"/extract", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("extract = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(string(env.Data), `"status":"pending"`) {
		t.Fatalf("extract snapshot = %s", env.Data)
	}
	w, _ = call(t, a, httptest.NewRequest(http.MethodPost, "/api/question-documents/"+id+"/extract", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("second extract = %d", w.Code)
	}
	w, _ = call(t, a, httptest.NewRequest(http.MethodDelete, "/api/question-documents/"+id, nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("delete while queued = %d", w.Code)
	}

	w, env = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents/"+id+"/status", nil))
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"documentId":`+id) {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}

	w, _ = call(t, a, jsonRequest(http.MethodPut, "/api/question-documents/"+id+"/review", gin.H{"status": "maybe"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad review status = %d", w.Code)
	}
	w, env = call(t, a, jsonRequest(http.MethodPut, "/api/question-documents/"+id+"/review", gin.H{"status": model.ReviewApproved}))
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"status":"approved"`) {
		t.Fatalf("review = %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents?subjectId="+sid, nil))
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"total":1`) {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}

	w, _ = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents/4040/status", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status of missing document = %d", w.Code)
	}
	w, _ = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents/abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", w.Code)
	}
}

func TestRecategorizeAndDeleteEndpoints(t *testing.T) {
	a, db := newTestApp(t, testConfig(t))
	tx := testutil.SeedTaxonomy(t, db)
	doc := testutil.SeedDocument(t, db, tx.Subject.ID, model.ReviewApproved,
		model.Question{QuestionText: "Explain breadth first search on a graph", Marks: 5})
	id := strconv.Itoa(int(doc.ID))

	w, env := call(t, a, httptest.NewRequest(http.MethodPost, "/api/question-documents/"+id+"/recategorize", nil))
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"questions":1`) {
		t.Fatalf("recategorize = %d %s", w.Code, w.Body.String())
	}

	w, env = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents/"+id+"/questions", nil))
	if w.Code != http.StatusOK || !strings.Contains(string(env.Data), `"total":1`) {
		t.Fatalf("questions = %d %s", w.Code, w.Body.String())
	}

	w, _ = call(t, a, httptest.NewRequest(http.MethodDelete, "/api/question-documents/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", w.Code, w.Body.String())
	}
	w, _ = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-documents/"+id, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
}

func TestPaperEndpoints(t *testing.T) {
	a, db := newTestApp(t, testConfig(t))
	tx := testutil.SeedTaxonomy(t, db)
	testutil.SeedDocument(t, db, tx.Subject.ID, model.ReviewApproved,
		model.Question{QuestionText: "Define a stack", Marks: 2, DifficultyLevel: model.DifficultyEasy},
		model.Question{QuestionText: "Compare stacks and queues", Marks: 3, DifficultyLevel: model.DifficultyMedium},
		model.Question{QuestionText: "Prove the height bound of an AVL tree", Marks: 5, DifficultyLevel: model.DifficultyHard},
	)

	w, _ := call(t, a, jsonRequest(http.MethodPost, "/api/question-papers", gin.H{
		"subjectId":              tx.Subject.ID,
		"totalMarks":             10,
		"difficultyDistribution": gin.H{"easy": 0.5, "medium": 0.5, "hard": 0.5},
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad distribution = %d", w.Code)
	}

	w, _ = call(t, a, jsonRequest(http.MethodPost, "/api/question-papers", gin.H{"subjectId": tx.Subject.ID}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing total marks = %d", w.Code)
	}

	w, _ = call(t, a, jsonRequest(http.MethodPost, "/api/question-papers", gin.H{
		"subjectId":  tx.Subject.ID,
		"topicIds":   []uint{tx.Topics[3].ID},
		"totalMarks": 10,
	}))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty selection = %d", w.Code)
	}

	w, env := call(t, a, jsonRequest(http.MethodPost, "/api/question-papers", gin.H{
		"subjectId":  tx.Subject.ID,
		"title":      "Unit Test Paper",
		"totalMarks": 10,
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("generate = %d %s", w.Code, w.Body.String())
	}
	var generated struct {
		Paper         model.GeneratedQuestionPaper `json:"paper"`
		QuestionCount int                          `json:"questionCount"`
	}
	json.Unmarshal(env.Data, &generated)
	if generated.Paper.ID == 0 || generated.QuestionCount == 0 || generated.Paper.Title != "Unit Test Paper" || generated.Paper.DurationMinutes != 90 {
		t.Fatalf("generated = %+v", generated)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/question-papers/"+strconv.Itoa(int(generated.Paper.ID))+"/download", nil)
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("download = %d, %d bytes", w.Code, w.Body.Len())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), generated.Paper.Filename) {
		t.Fatalf("content disposition = %q", w.Header().Get("Content-Disposition"))
	}

	w, _ = call(t, a, httptest.NewRequest(http.MethodGet, "/api/question-papers/777/download", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("download missing paper = %d", w.Code)
	}
}

func TestAPIKeysGuardWrites(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.APIKeys = []string{"s3cret"}
	a, _ := newTestApp(t, cfg)

	w, _ := call(t, a, jsonRequest(http.MethodPost, "/api/subjects", gin.H{"name": "Compilers"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("write without key = %d", w.Code)
	}

	req := jsonRequest(http.MethodPost, "/api/subjects", gin.H{"name": "Compilers"})
	req.Header.Set("X-API-Key", "s3cret")
	w, _ = call(t, a, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("write with key = %d %s", w.Code, w.Body.String())
	}

	w, _ = call(t, a, httptest.NewRequest(http.MethodGet, "/api/subjects", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("open read = %d", w.Code)
	}
}

func TestApplyConfigUpdatesServices(t *testing.T) {
	a, _ := newTestApp(t, testConfig(t))

	next := testConfig(t)
	next.Categorizer.Threshold = 0.4
	next.Extraction.MinStemForOptions = 80
	a.ApplyConfig(next)

	opts := a.services.extraction.Options()
	if opts.CategorizerThreshold != 0.4 || opts.Extractor.MinStemForOptions != 80 {
		t.Fatalf("extraction options = %+v", opts)
	}
}
