package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"chessacademy/internal/util"
	"chessacademy/pkg/domain"
	"chessacademy/pkg/kv"
)

// Transient hand-off slots read by the quiz editor. Singular and
// last-writer-wins: each Set fully replaces the previous value.
const (
	KeyPGNForQuiz      = "pgnForQuiz"
	KeyPGNBatchForQuiz = "pgnBatchForQuiz"
	KeyBatchQuizTitle  = "batchQuizTitle"
)

const batchSource = "pgn-library"

// batchConcurrency caps in-flight hydrations during a batch transform.
const batchConcurrency = 4

// QuizSource lists the caller's quizzes.
type QuizSource interface {
	ListQuizzes(ctx context.Context, token string) ([]domain.QuizDraft, error)
}

// GameDetailer hydrates one game record.
type GameDetailer interface {
	GetGame(ctx context.Context, token string, id int) (domain.GameRecord, error)
}

// Bridge converts selected game records into quiz-question payloads and
// hands them to the quiz editor through transient storage. It never
// creates or edits a quiz itself.
type Bridge struct {
	games   GameDetailer
	quizzes QuizSource
	store   kv.Store
	token   string
	now     func() time.Time
}

// NewBridge wires a bridge for one session. The store should already be
// scoped to that session.
func NewBridge(games GameDetailer, quizzes QuizSource, store kv.Store, token string) *Bridge {
	return &Bridge{
		games:   games,
		quizzes: quizzes,
		store:   store,
		token:   token,
		now:     time.Now,
	}
}

// FetchDraftQuizzes lists the caller's quizzes and keeps only drafts;
// published quizzes are immutable downstream and never offered as merge
// targets. Failures never propagate: the returned message is display
// text and the list is empty.
func (b *Bridge) FetchDraftQuizzes(ctx context.Context) (drafts []domain.QuizDraft, errMsg string) {
	all, err := b.quizzes.ListQuizzes(ctx, b.token)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("fetch quizzes failed", "err", err)
		return nil, fmt.Sprintf("Failed to fetch quizzes: %s", err.Error())
	}
	drafts = make([]domain.QuizDraft, 0, len(all))
	for _, q := range all {
		if q.Status == domain.QuizStatusDraft {
			drafts = append(drafts, q)
		}
	}
	return drafts, ""
}

// LoadPGNContent hydrates a game's movetext from the detail endpoint.
// Returns "" with no error when the backend holds no content for the
// game; errors are reserved for failed requests.
func (b *Bridge) LoadPGNContent(ctx context.Context, gameID int) (string, error) {
	rec, err := b.games.GetGame(ctx, b.token, gameID)
	if err != nil {
		return "", err
	}
	return rec.PGNContent, nil
}

// CreatePGNQuestion builds one question payload from a record, hydrating
// the movetext first when the record is only a preview. A record whose
// content is truly unavailable yields an empty pgn_data, not an error.
func (b *Bridge) CreatePGNQuestion(ctx context.Context, rec domain.GameRecord, questionText string) (domain.ChessQuestionPayload, error) {
	if questionText == "" {
		questionText = fmt.Sprintf("Analyze this game: %s", rec.Title)
	}
	return b.buildPayload(ctx, rec, questionText, 0)
}

// AddMultiplePGNsToQuiz builds one payload per record concurrently,
// preserving input order in the output, and writes the batch to the
// hand-off slot. All-or-nothing: any single failure aborts the transform
// and leaves the stored batch untouched.
func (b *Bridge) AddMultiplePGNsToQuiz(ctx context.Context, recs []domain.GameRecord, baseQuestionText string) ([]domain.ChessQuestionPayload, error) {
	payloads := make([]domain.ChessQuestionPayload, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			text := baseQuestionText
			if text == "" {
				text = fmt.Sprintf("Analyze game %d: %s", i+1, rec.Title)
			}
			p, err := b.buildPayload(gctx, rec, text, i)
			if err != nil {
				return fmt.Errorf("game %d (%s): %w", rec.ID, rec.Title, err)
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := domain.PGNBatch{
		Questions: payloads,
		Metadata: domain.BatchMetadata{
			Source:       batchSource,
			BatchCreated: b.now().UTC(),
			TotalGames:   len(payloads),
		},
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	if err := b.store.Set(ctx, KeyPGNBatchForQuiz, string(data)); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}
	return payloads, nil
}

func (b *Bridge) buildPayload(ctx context.Context, rec domain.GameRecord, questionText string, index int) (domain.ChessQuestionPayload, error) {
	pgn := rec.PGNContent
	if pgn == "" && rec.ID != 0 {
		loaded, err := b.LoadPGNContent(ctx, rec.ID)
		if err != nil {
			return domain.ChessQuestionPayload{}, err
		}
		pgn = loaded
	}
	return domain.ChessQuestionPayload{
		TempID:              b.now().UnixMilli() + int64(index),
		Question:            questionText,
		Type:                "chess",
		ChessMode:           "pgn",
		PGNData:             pgn,
		GameID:              rec.ID,
		FilePath:            rec.FilePath,
		ChessPosition:       "start",
		ChessOrientation:    "white",
		ExpectedPlayerColor: "white",
		CorrectMoves:        []string{},
		Tags:                []string{"game-analysis", "pgn"},
	}, nil
}

// StorePGNForQuiz writes the lighter single-game descriptor used by the
// "create new quiz from one PGN" flow. The quiz editor finishes
// hydration downstream.
func (b *Bridge) StorePGNForQuiz(ctx context.Context, rec domain.GameRecord) error {
	desc := domain.StoredPGN{
		Title:       rec.Title,
		PGNContent:  rec.PGNContent,
		FilePath:    rec.FilePath,
		GameID:      rec.ID,
		Description: rec.Description,
		Category:    rec.Category,
		Metadata:    rec.Metadata,
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, KeyPGNForQuiz, string(data)); err != nil {
		return fmt.Errorf("store pgn: %w", err)
	}
	return nil
}

// StoredPGNData reads the single-game slot. Absent, unreadable, or
// malformed content all read as nil; this never fails.
func (b *Bridge) StoredPGNData(ctx context.Context) *domain.StoredPGN {
	raw, ok, err := b.store.Get(ctx, KeyPGNForQuiz)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("read stored pgn failed", "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	var desc domain.StoredPGN
	if err := json.Unmarshal([]byte(raw), &desc); err != nil {
		util.LoggerFromContext(ctx).Debug("stored pgn malformed, ignoring", "err", err)
		return nil
	}
	return &desc
}

// ClearStoredPGNData removes the single-game slot.
func (b *Bridge) ClearStoredPGNData(ctx context.Context) error {
	return b.store.Delete(ctx, KeyPGNForQuiz)
}

// StoreBatchQuizTitle records the suggested title for a quiz created
// from the current batch.
func (b *Bridge) StoreBatchQuizTitle(ctx context.Context, title string) error {
	return b.store.Set(ctx, KeyBatchQuizTitle, title)
}

// StoredBatch reads the batch slot; nil when absent or malformed.
func (b *Bridge) StoredBatch(ctx context.Context) *domain.PGNBatch {
	raw, ok, err := b.store.Get(ctx, KeyPGNBatchForQuiz)
	if err != nil || !ok {
		return nil
	}
	var batch domain.PGNBatch
	if err := json.Unmarshal([]byte(raw), &batch); err != nil {
		return nil
	}
	return &batch
}
