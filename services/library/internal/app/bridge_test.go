package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"chessacademy/pkg/domain"
	"chessacademy/pkg/kv"
)

type fakeDetailer struct {
	mu    sync.Mutex
	recs  map[int]domain.GameRecord
	fail  map[int]error
	delay map[int]time.Duration
	calls []int
}

func (f *fakeDetailer) GetGame(_ context.Context, _ string, id int) (domain.GameRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	rec, ok := f.recs[id]
	err := f.fail[id]
	d := f.delay[id]
	f.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return domain.GameRecord{}, err
	}
	if !ok {
		return domain.GameRecord{}, errors.New("game not found")
	}
	return rec, nil
}

type fakeQuizzes struct {
	quizzes []domain.QuizDraft
	err     error
}

func (f *fakeQuizzes) ListQuizzes(context.Context, string) ([]domain.QuizDraft, error) {
	return f.quizzes, f.err
}

func newTestBridge(games GameDetailer, quizzes QuizSource) (*Bridge, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return NewBridge(games, quizzes, store, "tok"), store
}

func TestFetchDraftQuizzesFiltersPublished(t *testing.T) {
	b, _ := newTestBridge(&fakeDetailer{}, &fakeQuizzes{quizzes: []domain.QuizDraft{
		{ID: 1, Title: "Rook endings", Status: domain.QuizStatusDraft},
		{ID: 2, Title: "Mate in two", Status: domain.QuizStatusPublished},
		{ID: 3, Title: "Pins", Status: domain.QuizStatusDraft},
	}})

	drafts, errMsg := b.FetchDraftQuizzes(context.Background())
	if errMsg != "" {
		t.Fatalf("unexpected error message: %q", errMsg)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %v", drafts)
	}
	for _, q := range drafts {
		if q.Status != domain.QuizStatusDraft {
			t.Fatalf("non-draft quiz offered as merge target: %+v", q)
		}
	}
}

func TestFetchDraftQuizzesNeverPropagatesErrors(t *testing.T) {
	b, _ := newTestBridge(&fakeDetailer{}, &fakeQuizzes{err: errors.New("quiz api down")})
	drafts, errMsg := b.FetchDraftQuizzes(context.Background())
	if len(drafts) != 0 {
		t.Fatalf("expected empty list on failure, got %v", drafts)
	}
	if errMsg != "Failed to fetch quizzes: quiz api down" {
		t.Fatalf("unexpected message: %q", errMsg)
	}
}

func TestCreatePGNQuestionHydratesPreview(t *testing.T) {
	games := &fakeDetailer{recs: map[int]domain.GameRecord{
		5: {ID: 5, Title: "Game A", PGNContent: "1.e4 e5"},
	}}
	b, _ := newTestBridge(games, &fakeQuizzes{})

	p, err := b.CreatePGNQuestion(context.Background(), domain.GameRecord{ID: 5, Title: "Game A"}, "")
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if p.PGNData != "1.e4 e5" {
		t.Fatalf("pgn_data = %q", p.PGNData)
	}
	if p.Question != "Analyze this game: Game A" {
		t.Fatalf("question = %q", p.Question)
	}
	if p.Type != "chess" || p.ChessMode != "pgn" {
		t.Fatalf("constants wrong: type=%q mode=%q", p.Type, p.ChessMode)
	}
	if p.ChessPosition != "start" || p.ChessOrientation != "white" || p.ExpectedPlayerColor != "white" {
		t.Fatalf("defaults wrong: %+v", p)
	}
	if len(p.CorrectMoves) != 0 {
		t.Fatalf("correct_moves should start empty: %v", p.CorrectMoves)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "game-analysis" || p.Tags[1] != "pgn" {
		t.Fatalf("tags wrong: %v", p.Tags)
	}
	if p.TempID == 0 {
		t.Fatalf("tempId must be set")
	}
}

func TestCreatePGNQuestionUsesInlineContent(t *testing.T) {
	games := &fakeDetailer{}
	b, _ := newTestBridge(games, &fakeQuizzes{})

	rec := domain.GameRecord{ID: 3, Title: "Known", PGNContent: "1.d4 d5"}
	p, err := b.CreatePGNQuestion(context.Background(), rec, "Find the losing move")
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if p.PGNData != "1.d4 d5" || p.Question != "Find the losing move" {
		t.Fatalf("unexpected payload: %+v", p)
	}
	games.mu.Lock()
	defer games.mu.Unlock()
	if len(games.calls) != 0 {
		t.Fatalf("hydrated record must not refetch, calls=%v", games.calls)
	}
}

func TestCreatePGNQuestionToleratesMissingContent(t *testing.T) {
	games := &fakeDetailer{recs: map[int]domain.GameRecord{
		8: {ID: 8, Title: "Empty upload"},
	}}
	b, _ := newTestBridge(games, &fakeQuizzes{})

	p, err := b.CreatePGNQuestion(context.Background(), domain.GameRecord{ID: 8, Title: "Empty upload"}, "")
	if err != nil {
		t.Fatalf("truly unavailable content is not an error: %v", err)
	}
	if p.PGNData != "" {
		t.Fatalf("pgn_data = %q, want empty", p.PGNData)
	}
}

func TestBatchPreservesInputOrder(t *testing.T) {
	games := &fakeDetailer{
		recs: map[int]domain.GameRecord{
			1: {ID: 1, Title: "A", PGNContent: "1.a3"},
			2: {ID: 2, Title: "B", PGNContent: "1.b3"},
			3: {ID: 3, Title: "C", PGNContent: "1.c3"},
		},
		delay: map[int]time.Duration{2: 50 * time.Millisecond},
	}
	b, _ := newTestBridge(games, &fakeQuizzes{})

	recs := []domain.GameRecord{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}}
	payloads, err := b.AddMultiplePGNsToQuiz(context.Background(), recs, "")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(payloads) != 3 {
		t.Fatalf("expected 3 payloads, got %d", len(payloads))
	}
	for i, want := range []string{"1.a3", "1.b3", "1.c3"} {
		if payloads[i].PGNData != want {
			t.Fatalf("payload %d out of order: %q want %q", i, payloads[i].PGNData, want)
		}
	}
	for i, want := range []string{"Analyze game 1: A", "Analyze game 2: B", "Analyze game 3: C"} {
		if payloads[i].Question != want {
			t.Fatalf("question %d = %q, want %q", i, payloads[i].Question, want)
		}
	}
}

func TestBatchWritesHandOffSlot(t *testing.T) {
	games := &fakeDetailer{recs: map[int]domain.GameRecord{
		1: {ID: 1, Title: "A", PGNContent: "1.a3"},
	}}
	b, store := newTestBridge(games, &fakeQuizzes{})

	if _, err := b.AddMultiplePGNsToQuiz(context.Background(), []domain.GameRecord{{ID: 1, Title: "A"}}, "Study this"); err != nil {
		t.Fatalf("batch: %v", err)
	}
	batch := b.StoredBatch(context.Background())
	if batch == nil {
		t.Fatal("expected stored batch")
	}
	if batch.Metadata.Source != "pgn-library" || batch.Metadata.TotalGames != 1 {
		t.Fatalf("metadata wrong: %+v", batch.Metadata)
	}
	if batch.Metadata.BatchCreated.IsZero() {
		t.Fatal("batch_created not set")
	}
	if len(batch.Questions) != 1 || batch.Questions[0].Question != "Study this" {
		t.Fatalf("questions wrong: %+v", batch.Questions)
	}

	if _, ok, _ := store.Get(context.Background(), KeyPGNBatchForQuiz); !ok {
		t.Fatal("batch key missing from store")
	}
}

func TestBatchIsAtomicOnFailure(t *testing.T) {
	games := &fakeDetailer{
		recs: map[int]domain.GameRecord{
			1: {ID: 1, Title: "A", PGNContent: "1.a3"},
			3: {ID: 3, Title: "C", PGNContent: "1.c3"},
		},
		fail: map[int]error{2: errors.New("detail endpoint 500")},
	}
	b, store := newTestBridge(games, &fakeQuizzes{})

	prior := `{"questions":[],"metadata":{"source":"pgn-library","total_games":0}}`
	if err := store.Set(context.Background(), KeyPGNBatchForQuiz, prior); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	recs := []domain.GameRecord{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"}}
	if _, err := b.AddMultiplePGNsToQuiz(context.Background(), recs, ""); err == nil {
		t.Fatal("expected batch failure")
	}
	val, ok, _ := store.Get(context.Background(), KeyPGNBatchForQuiz)
	if !ok || val != prior {
		t.Fatalf("failed batch must leave the slot untouched, got ok=%v val=%q", ok, val)
	}
}

func TestStorePGNRoundTrip(t *testing.T) {
	b, _ := newTestBridge(&fakeDetailer{}, &fakeQuizzes{})
	ctx := context.Background()

	rec := domain.GameRecord{
		ID:          5,
		Title:       "Sicilian trap",
		PGNContent:  "1.e4 c5",
		FilePath:    "uploads/sicilian.pgn",
		Description: "A classic trap",
		Category:    domain.CategoryTactics,
		Metadata:    domain.GameMetadata{TotalGames: 1},
	}
	if err := b.StorePGNForQuiz(ctx, rec); err != nil {
		t.Fatalf("store: %v", err)
	}
	got := b.StoredPGNData(ctx)
	if got == nil {
		t.Fatal("expected stored descriptor")
	}
	if got.GameID != 5 || got.Title != "Sicilian trap" || got.PGNContent != "1.e4 c5" {
		t.Fatalf("descriptor mismatch: %+v", got)
	}
	if got.Category != domain.CategoryTactics || got.Metadata.TotalGames != 1 {
		t.Fatalf("descriptor mismatch: %+v", got)
	}

	if err := b.ClearStoredPGNData(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := b.StoredPGNData(ctx); got != nil {
		t.Fatalf("expected nil after clear, got %+v", got)
	}
}

func TestStoredPGNDataIgnoresMalformedContent(t *testing.T) {
	b, store := newTestBridge(&fakeDetailer{}, &fakeQuizzes{})
	ctx := context.Background()
	if err := store.Set(ctx, KeyPGNForQuiz, "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got := b.StoredPGNData(ctx); got != nil {
		t.Fatalf("malformed content must read as nil, got %+v", got)
	}
}

func TestBatchQuizTitleSlot(t *testing.T) {
	b, store := newTestBridge(&fakeDetailer{}, &fakeQuizzes{})
	ctx := context.Background()
	if err := b.StoreBatchQuizTitle(ctx, "Quiz from 3 games"); err != nil {
		t.Fatalf("store title: %v", err)
	}
	val, ok, _ := store.Get(ctx, KeyBatchQuizTitle)
	if !ok || val != "Quiz from 3 games" {
		t.Fatalf("title slot wrong: ok=%v val=%q", ok, val)
	}
}

func TestBatchTempIDsAreDistinct(t *testing.T) {
	games := &fakeDetailer{recs: map[int]domain.GameRecord{}}
	b, _ := newTestBridge(games, &fakeQuizzes{})
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return fixed }

	recs := make([]domain.GameRecord, 3)
	for i := range recs {
		recs[i] = domain.GameRecord{Title: fmt.Sprintf("G%d", i), PGNContent: "1.e4"}
	}
	payloads, err := b.AddMultiplePGNsToQuiz(context.Background(), recs, "")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	seen := map[int64]bool{}
	for _, p := range payloads {
		if seen[p.TempID] {
			t.Fatalf("duplicate tempId %d", p.TempID)
		}
		seen[p.TempID] = true
	}
}
