package domain

import "time"

type GameCategory string

const (
	CategoryOpening    GameCategory = "opening"
	CategoryMiddlegame GameCategory = "middlegame"
	CategoryEndgame    GameCategory = "endgame"
	CategoryTactics    GameCategory = "tactics"
	CategoryStrategy   GameCategory = "strategy"
)

type QuizStatus string

const (
	QuizStatusDraft     QuizStatus = "draft"
	QuizStatusPublished QuizStatus = "published"
)

type QuizDifficulty string

const (
	DifficultyBeginner     QuizDifficulty = "beginner"
	DifficultyIntermediate QuizDifficulty = "intermediate"
	DifficultyAdvanced     QuizDifficulty = "advanced"
)

// GameRecord is one stored chess game. A record is either a preview
// (summary fields only, PGNContent empty) or hydrated (PGNContent set,
// fetched on demand via the detail endpoint). Consumers tolerate both.
type GameRecord struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Category     GameCategory `json:"category,omitempty"`
	IsPublic     bool         `json:"is_public"`
	TeacherID    int          `json:"teacher_id"`
	PGNContent   string       `json:"pgn_content,omitempty"`
	FilePath     string       `json:"file_path,omitempty"`
	ContentSize  int64        `json:"content_size"`
	CreatedAt    time.Time    `json:"created_at"`
	Metadata     GameMetadata `json:"metadata"`
	IsBookmarked bool         `json:"is_bookmarked,omitempty"` // local toggle, never persisted here
}

// GameMetadata carries upload-level details; one uploaded PGN file may
// bundle several games.
type GameMetadata struct {
	TotalGames int `json:"totalGames"`
}

// Hydrated reports whether the record carries its movetext inline.
func (g GameRecord) Hydrated() bool {
	return g.PGNContent != ""
}

// QuizDraft is a quiz eligible to receive new questions. Published
// quizzes are immutable downstream, so only draft status is ever offered
// as a merge target.
type QuizDraft struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Difficulty    QuizDifficulty `json:"difficulty"`
	QuestionCount int            `json:"question_count"`
	Status        QuizStatus     `json:"status"`
}

// ChessQuestionPayload is the artifact handed off to the quiz editor.
// PGNData must be hydrated before hand-off whenever hydration is possible.
type ChessQuestionPayload struct {
	TempID              int64    `json:"tempId"`
	Question            string   `json:"question"`
	Type                string   `json:"type"`
	ChessMode           string   `json:"chess_mode"`
	PGNData             string   `json:"pgn_data"`
	GameID              int      `json:"game_id"`
	FilePath            string   `json:"file_path,omitempty"`
	ChessPosition       string   `json:"chess_position"`
	ChessOrientation    string   `json:"chess_orientation"`
	ExpectedPlayerColor string   `json:"expected_player_color"`
	CorrectMoves        []string `json:"correct_moves"`
	Tags                []string `json:"tags"`
}

// StoredPGN is the lighter single-game descriptor written for the
// "create new quiz from one PGN" flow. The quiz editor finishes
// hydration downstream.
type StoredPGN struct {
	Title       string       `json:"title"`
	PGNContent  string       `json:"pgn_content,omitempty"`
	FilePath    string       `json:"file_path,omitempty"`
	GameID      int          `json:"game_id"`
	Description string       `json:"description,omitempty"`
	Category    GameCategory `json:"category,omitempty"`
	Metadata    GameMetadata `json:"metadata"`
}

// PGNBatch is the multi-game hand-off envelope stored under the batch key.
type PGNBatch struct {
	Questions []ChessQuestionPayload `json:"questions"`
	Metadata  BatchMetadata          `json:"metadata"`
}

// BatchMetadata describes where a batch came from.
type BatchMetadata struct {
	Source       string    `json:"source"`
	BatchCreated time.Time `json:"batch_created"`
	TotalGames   int       `json:"total_games"`
}
