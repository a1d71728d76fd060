package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/bondlens/bondlens/app/analyzer"
	"github.com/bondlens/bondlens/app/classifier"
	"github.com/bondlens/bondlens/app/database"
	"github.com/bondlens/bondlens/app/synthesizer"
)

// MockDocumentRepository implements a simple mock for testing
type MockDocumentRepository struct {
	documents     []database.Document
	pendingCount  int
	staleWindows  []time.Time
	statusUpdates map[string]string
}

func (m *MockDocumentRepository) InsertDocument(doc database.Document) error {
	m.documents = append(m.documents, doc)
	return nil
}

func (m *MockDocumentRepository) GetDocument(id string) (*database.Document, error) {
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, nil
}

func (m *MockDocumentRepository) GetDocumentsInWindow(start, end time.Time) ([]database.Document, error) {
	return m.documents, nil
}

func (m *MockDocumentRepository) GetRecentDocuments(since time.Time) ([]database.Document, error) {
	return m.documents, nil
}

func (m *MockDocumentRepository) GetPendingCount(start, end time.Time) (int, error) {
	return m.pendingCount, nil
}

func (m *MockDocumentRepository) GetDocumentCountInWindow(start, end time.Time) (int, error) {
	return len(m.documents), nil
}

func (m *MockDocumentRepository) GetStatusCountsInWindow(start, end time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, doc := range m.documents {
		counts[doc.Status]++
	}
	return counts, nil
}

func (m *MockDocumentRepository) GetWindowsNeedingSynthesis(limit int) ([]time.Time, error) {
	return m.staleWindows, nil
}

func (m *MockDocumentRepository) GetDocumentStats() (database.DocumentStats, error) {
	return database.DocumentStats{Total: len(m.documents)}, nil
}

func (m *MockDocumentRepository) UpdateDocumentStatus(id string, status string, reason string) error {
	if m.statusUpdates == nil {
		m.statusUpdates = map[string]string{}
	}
	m.statusUpdates[id] = status
	return nil
}

// MockAssessmentRepository implements a simple mock for testing
type MockAssessmentRepository struct {
	assessments []database.Assessment
}

func (m *MockAssessmentRepository) UpsertAssessment(a database.Assessment) error {
	m.assessments = append(m.assessments, a)
	return nil
}

func (m *MockAssessmentRepository) GetAssessment(documentID string) (*database.Assessment, error) {
	for i := range m.assessments {
		if m.assessments[i].DocumentID == documentID {
			return &m.assessments[i], nil
		}
	}
	return nil, nil
}

func (m *MockAssessmentRepository) GetValidAssessmentsInWindow(start, end time.Time) ([]database.Assessment, error) {
	var valid []database.Assessment
	for _, a := range m.assessments {
		if a.Status == analyzer.StatusValid {
			valid = append(valid, a)
		}
	}
	return valid, nil
}

func (m *MockAssessmentRepository) GetAssessmentsInWindow(start, end time.Time) ([]database.Assessment, error) {
	return m.assessments, nil
}

func (m *MockAssessmentRepository) GetAssessmentCount() (int, error) {
	return len(m.assessments), nil
}

// MockConsensusRepository implements a simple mock for testing
type MockConsensusRepository struct {
	runs []database.ConsensusRun
}

func (m *MockConsensusRepository) InsertRun(run database.ConsensusRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *MockConsensusRepository) GetLatestRun(windowStart time.Time) (*database.ConsensusRun, error) {
	if len(m.runs) == 0 {
		return nil, nil
	}
	return &m.runs[len(m.runs)-1], nil
}

func (m *MockConsensusRepository) GetRuns(windowStart time.Time) ([]database.ConsensusRun, error) {
	return m.runs, nil
}

func (m *MockConsensusRepository) GetRunCount() (int, error) {
	return len(m.runs), nil
}

// scriptedChatModel replays canned responses
type scriptedChatModel struct {
	responses []string
	calls     int
}

func (s *scriptedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		return nil, fmt.Errorf("unexpected call %d", idx)
	}
	return &schema.Message{Role: schema.Assistant, Content: s.responses[idx]}, nil
}

func (s *scriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported")
}

func (s *scriptedChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

func newTaskAnalyzer(responses ...string) *analyzer.Analyzer {
	return analyzer.NewAnalyzer(
		&scriptedChatModel{responses: responses},
		rate.NewLimiter(rate.Inf, 1),
		analyzer.NewSchema(0, 10, 5, 200),
		analyzer.WeightConfig{ReadCountCeiling: 10000, ReadCountBoost: 0.5},
		30*time.Second,
	)
}

func newTaskSynthesizer() *synthesizer.Synthesizer {
	return synthesizer.NewSynthesizer(classifier.ShingleSimilarity, 0.15, 1e-9, 2.0, 0.6, 10)
}

func pendingDocument(id string) database.Document {
	return database.Document{
		ID:          id,
		SourceID:    "alpha-research",
		Title:       "Rates daily",
		RawText:     "Treasury yields fell on strong auction demand.",
		Category:    classifier.CategoryFixedIncome,
		Status:      database.DocumentStatusPending,
		PublishedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func validAssessmentRow(documentID, direction string, weight float64) database.Assessment {
	return database.Assessment{
		ID:         "assessment-" + documentID,
		DocumentID: documentID,
		SourceID:   "src-" + documentID,
		Scores: map[string]float64{
			analyzer.DimFundamentals: 6,
			analyzer.DimFunding:      5,
			analyzer.DimPolicy:       7,
			analyzer.DimSentiment:    5,
		},
		Direction:   direction,
		Theses:      []string{"duration demand stays firm"},
		Weight:      weight,
		Status:      analyzer.StatusValid,
		PublishedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzeDocumentTask_Success(t *testing.T) {
	docRepo := &MockDocumentRepository{}
	assessmentRepo := &MockAssessmentRepository{}
	a := newTaskAnalyzer(`{"scores": {"fundamentals": 6, "funding": 5, "policy": 7, "sentiment": 5}, "direction": "down", "theses": ["Auction demand supports duration"]}`)

	task := NewAnalyzeDocumentTask(pendingDocument("doc-1"), 1, a, docRepo, assessmentRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(assessmentRepo.assessments) != 1 {
		t.Fatalf("Expected 1 stored assessment, got %d", len(assessmentRepo.assessments))
	}
	stored := assessmentRepo.assessments[0]
	if stored.Status != analyzer.StatusValid || stored.Direction != analyzer.DirectionDown {
		t.Errorf("Unexpected stored assessment: %+v", stored)
	}
	if got := docRepo.statusUpdates["doc-1"]; got != database.DocumentStatusAnalyzed {
		t.Errorf("Expected document marked analyzed, got %q", got)
	}
}

func TestAnalyzeDocumentTask_RejectionIsFinal(t *testing.T) {
	docRepo := &MockDocumentRepository{}
	assessmentRepo := &MockAssessmentRepository{}
	a := newTaskAnalyzer("not json", "still not json")

	task := NewAnalyzeDocumentTask(pendingDocument("doc-1"), 1, a, docRepo, assessmentRepo)

	// The analyzer already spent its stricter retry; the task must persist
	// the rejection and not signal the scheduler to retry.
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected rejection to be swallowed, got %v", err)
	}

	if len(assessmentRepo.assessments) != 1 {
		t.Fatalf("Expected rejected assessment stored, got %d", len(assessmentRepo.assessments))
	}
	if assessmentRepo.assessments[0].Status != analyzer.StatusRejected {
		t.Errorf("Expected rejected status, got %s", assessmentRepo.assessments[0].Status)
	}
	if got := docRepo.statusUpdates["doc-1"]; got != database.DocumentStatusRejected {
		t.Errorf("Expected document marked rejected, got %q", got)
	}
}

func terminalDocument(id, status string) database.Document {
	doc := pendingDocument(id)
	doc.Status = status
	return doc
}

func TestSynthesizeWindowTask_StoresRun(t *testing.T) {
	docRepo := &MockDocumentRepository{
		documents: []database.Document{
			terminalDocument("doc-1", database.DocumentStatusAnalyzed),
			terminalDocument("doc-2", database.DocumentStatusAnalyzed),
			terminalDocument("doc-3", database.DocumentStatusRejected),
		},
	}
	assessmentRepo := &MockAssessmentRepository{
		assessments: []database.Assessment{
			validAssessmentRow("doc-1", analyzer.DirectionUp, 2.0),
			validAssessmentRow("doc-2", analyzer.DirectionUp, 2.0),
		},
	}
	consensusRepo := &MockConsensusRepository{}

	start, end := synthesizer.WindowBounds(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 24)
	task := NewSynthesizeWindowTask(start, end, database.RunTriggerManual, newTaskSynthesizer(),
		docRepo, assessmentRepo, consensusRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(consensusRepo.runs) != 1 {
		t.Fatalf("Expected 1 consensus run, got %d", len(consensusRepo.runs))
	}
	run := consensusRepo.runs[0]
	if run.Direction != analyzer.DirectionUp {
		t.Errorf("Expected direction up, got %s", run.Direction)
	}
	if run.AssessmentCount != 2 || run.DocumentCount != 3 || run.ExcludedCount != 1 {
		t.Errorf("Unexpected counts: %+v", run)
	}
	if run.RejectedCount != 1 || run.DuplicateCount != 0 || run.UnclassifiedCount != 0 || run.OutOfScopeCount != 0 {
		t.Errorf("Unexpected exclusion breakdown: %+v", run)
	}
	if run.Trigger != database.RunTriggerManual {
		t.Errorf("Expected manual trigger, got %s", run.Trigger)
	}

	var tally []synthesizer.DirectionShare
	if err := json.Unmarshal(run.Tally, &tally); err != nil {
		t.Fatalf("Tally not decodable: %v", err)
	}
	if len(tally) != 1 || tally[0].Share != 1.0 {
		t.Errorf("Unexpected tally %+v", tally)
	}
}

func TestSynthesizeWindowTask_DeferredWhilePending(t *testing.T) {
	docRepo := &MockDocumentRepository{
		documents:    []database.Document{pendingDocument("doc-1")},
		pendingCount: 1,
	}
	assessmentRepo := &MockAssessmentRepository{}
	consensusRepo := &MockConsensusRepository{}

	start, end := synthesizer.WindowBounds(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 24)
	task := NewSynthesizeWindowTask(start, end, database.RunTriggerScheduled, newTaskSynthesizer(),
		docRepo, assessmentRepo, consensusRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(consensusRepo.runs) != 0 {
		t.Errorf("Expected no run while documents pending, got %d", len(consensusRepo.runs))
	}
}

func TestSynthesizeWindowTask_EmptyWindowNoRun(t *testing.T) {
	docRepo := &MockDocumentRepository{
		documents: []database.Document{pendingDocument("doc-1")},
	}
	assessmentRepo := &MockAssessmentRepository{
		assessments: []database.Assessment{
			{ID: "assessment-doc-1", DocumentID: "doc-1", Status: analyzer.StatusRejected},
		},
	}
	consensusRepo := &MockConsensusRepository{}

	start, end := synthesizer.WindowBounds(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), 24)
	task := NewSynthesizeWindowTask(start, end, database.RunTriggerScheduled, newTaskSynthesizer(),
		docRepo, assessmentRepo, consensusRepo)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected empty window to be skipped quietly, got %v", err)
	}

	if len(consensusRepo.runs) != 0 {
		t.Errorf("Expected no run for empty window, got %d", len(consensusRepo.runs))
	}
}

func TestScheduler_EnqueuesStaleWindows(t *testing.T) {
	// A window closed well over a day ago whose document count changed since
	// its last run must be picked up again, not just yesterday and today.
	stale := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	docRepo := &MockDocumentRepository{staleWindows: []time.Time{stale}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Scheduler{
		documentRepo:   docRepo,
		assessmentRepo: &MockAssessmentRepository{},
		consensusRepo:  &MockConsensusRepository{},
		synthesizer:    newTaskSynthesizer(),
		windowHours:    24,
		ctx:            ctx,
		cancel:         cancel,
		taskQueue:      make(chan TaskInterface, 10),
	}

	s.enqueueSynthesisTasks()

	select {
	case task := <-s.taskQueue:
		if task.GetType() != TaskTypeSynthesizeWindow {
			t.Errorf("Expected SynthesizeWindow task, got %s", task.GetType())
		}
		if task.GetSubject() != "2026-02-10" {
			t.Errorf("Expected task for stale window 2026-02-10, got %s", task.GetSubject())
		}
	default:
		t.Fatal("Expected a synthesis task enqueued for the stale window")
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeAnalyzeDocument, "doc-1")

	if task.GetRetryCount() != 0 || task.GetMaxRetries() != DefaultMaxRetries {
		t.Errorf("Unexpected initial retry state: %d/%d", task.GetRetryCount(), task.GetMaxRetries())
	}

	for task.CanRetry() {
		task.IncrementRetryCount()
	}

	if task.GetRetryCount() != DefaultMaxRetries {
		t.Errorf("Expected retries to stop at %d, got %d", DefaultMaxRetries, task.GetRetryCount())
	}
}
