package app

import (
	"context"
	"fmt"
	"sync"

	"chessacademy/pkg/domain"
	"chessacademy/services/library/internal/academyclient"
)

// State is the browser lifecycle: Idle until the first load, Loading
// while a fetch is in flight, then Loaded or Error. Page changes never
// leave Loaded; they only re-slice the fetched set.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Visibility narrows the library to public games or the caller's own.
// A single tri-state replaces the dashboard's pair of mutually exclusive
// toggles, so "both at once" is unrepresentable.
type Visibility string

const (
	VisibilityAll    Visibility = "all"
	VisibilityPublic Visibility = "public"
	VisibilityMine   Visibility = "mine"
)

// GameSource is the slice of the academy backend the browser reads from.
type GameSource interface {
	ListGames(ctx context.Context, token string, f academyclient.GameFilters) ([]domain.GameRecord, int, error)
	GetGame(ctx context.Context, token string, id int) (domain.GameRecord, error)
}

// Filters is the current search/category/visibility selection.
type Filters struct {
	Search     string
	Category   domain.GameCategory
	Visibility Visibility
}

// BrowserConfig wires a browser instance.
type BrowserConfig struct {
	Source   GameSource
	Token    string
	Recorder *ViewRecorder
	OnSelect func(domain.GameRecord)
}

// Browser holds one session's view over the game library: the full
// fetched result set, the active filters, and the pagination window.
type Browser struct {
	source   GameSource
	token    string
	recorder *ViewRecorder
	onSelect func(domain.GameRecord)

	mu         sync.Mutex
	state      State
	filters    Filters
	games      []domain.GameRecord
	total      int
	page       int
	errMsg     string
	generation uint64
}

// NewBrowser constructs an idle browser; call Reload for the initial fetch.
func NewBrowser(cfg BrowserConfig) *Browser {
	return &Browser{
		source:   cfg.Source,
		token:    cfg.Token,
		recorder: cfg.Recorder,
		onSelect: cfg.OnSelect,
		state:    StateIdle,
		page:     1,
		filters:  Filters{Visibility: VisibilityAll},
	}
}

// SetSearch updates the search text, resets to page 1, and refetches.
func (b *Browser) SetSearch(ctx context.Context, search string) {
	b.mu.Lock()
	b.filters.Search = search
	b.reloadLocked(ctx)
}

// SetCategory updates the category filter, resets to page 1, and refetches.
func (b *Browser) SetCategory(ctx context.Context, category domain.GameCategory) {
	b.mu.Lock()
	b.filters.Category = category
	b.reloadLocked(ctx)
}

// SetVisibility selects the visibility scope, resets to page 1, and refetches.
func (b *Browser) SetVisibility(ctx context.Context, v Visibility) {
	b.mu.Lock()
	b.filters.Visibility = v
	b.reloadLocked(ctx)
}

// TogglePublicOnly flips the "public games only" toggle. Turning it on
// forces "my games only" off.
func (b *Browser) TogglePublicOnly(ctx context.Context) {
	b.mu.Lock()
	if b.filters.Visibility == VisibilityPublic {
		b.filters.Visibility = VisibilityAll
	} else {
		b.filters.Visibility = VisibilityPublic
	}
	b.reloadLocked(ctx)
}

// ToggleMyGames flips the "my games only" toggle. Turning it on forces
// "public games only" off.
func (b *Browser) ToggleMyGames(ctx context.Context) {
	b.mu.Lock()
	if b.filters.Visibility == VisibilityMine {
		b.filters.Visibility = VisibilityAll
	} else {
		b.filters.Visibility = VisibilityMine
	}
	b.reloadLocked(ctx)
}

// ApplyFilters replaces the whole filter selection at once, refetching
// when it differs from the current one or nothing has been loaded yet.
// An unchanged selection on a loaded browser is served from state; a
// browser stuck in Error always retries so a transient backend failure
// is not pinned for the rest of the session.
func (b *Browser) ApplyFilters(ctx context.Context, f Filters) {
	if f.Visibility == "" {
		f.Visibility = VisibilityAll
	}
	b.mu.Lock()
	if b.state != StateIdle && b.state != StateError && b.filters == f {
		b.mu.Unlock()
		return
	}
	b.filters = f
	b.reloadLocked(ctx)
}

// Reload refetches the library with the current filters.
func (b *Browser) Reload(ctx context.Context) {
	b.mu.Lock()
	b.reloadLocked(ctx)
}

// reloadLocked resets pagination, runs the fetch with the mutex released,
// and applies the result only if no newer fetch has started meanwhile.
// Callers must hold b.mu; it is released on return.
func (b *Browser) reloadLocked(ctx context.Context) {
	b.page = 1
	b.state = StateLoading
	b.generation++
	gen := b.generation
	filters := academyclient.GameFilters{
		Search:     b.filters.Search,
		Category:   b.filters.Category,
		PublicOnly: b.filters.Visibility == VisibilityPublic,
		UserOnly:   b.filters.Visibility == VisibilityMine,
		Page:       1,
	}
	b.mu.Unlock()

	games, total, err := b.source.ListGames(ctx, b.token, filters)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		// A newer fetch superseded this one; drop the stale response.
		return
	}
	if err != nil {
		b.games = nil
		b.total = 0
		b.errMsg = fmt.Sprintf("Failed to load games: %s", err.Error())
		b.state = StateError
		return
	}
	b.games = games
	b.total = total
	b.errMsg = ""
	b.state = StateLoaded
}

// SetPage moves the pagination window. Requests outside [1, totalPages]
// are no-ops; no network call is made.
func (b *Browser) SetPage(page int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, totalPages := Paginate(b.games, b.page, PageSize)
	if page < 1 || page > totalPages {
		return
	}
	b.page = page
}

// OpenDetail hydrates one record, arms best-effort view recording, and
// invokes the selection callback when one is registered. Recording
// failures never propagate here.
func (b *Browser) OpenDetail(ctx context.Context, gameID int) (domain.GameRecord, error) {
	rec, err := b.source.GetGame(ctx, b.token, gameID)
	if err != nil {
		return domain.GameRecord{}, err
	}
	if b.recorder != nil {
		b.recorder.Watch(rec.ID)
	}
	if b.onSelect != nil {
		b.onSelect(rec)
	}
	return rec, nil
}

// Recorder exposes the session's view recorder for manual operations.
func (b *Browser) Recorder() *ViewRecorder {
	return b.recorder
}

// Snapshot is an immutable view of the browser for rendering.
type Snapshot struct {
	State      State
	Filters    Filters
	Page       int
	TotalPages int
	PageItems  []domain.GameRecord
	Total      int
	Error      string
}

// Snapshot derives the current pagination window and state.
func (b *Browser) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	items, totalPages := Paginate(b.games, b.page, PageSize)
	return Snapshot{
		State:      b.state,
		Filters:    b.filters,
		Page:       b.page,
		TotalPages: totalPages,
		PageItems:  items,
		Total:      b.total,
		Error:      b.errMsg,
	}
}

// PublicOnly reports whether the public-only toggle is active.
func (b *Browser) PublicOnly() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters.Visibility == VisibilityPublic
}

// MyGames reports whether the my-games toggle is active.
func (b *Browser) MyGames() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters.Visibility == VisibilityMine
}

// Close cancels any pending view recording.
func (b *Browser) Close() {
	if b.recorder != nil {
		b.recorder.Stop()
	}
}
