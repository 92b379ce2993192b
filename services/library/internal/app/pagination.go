package app

import "chessacademy/pkg/domain"

// PageSize is the fixed library page size; not user-configurable.
const PageSize = 12

// Paginate slices an already-fetched result set. totalPages is always at
// least 1 and page is clamped into [1, totalPages] before slicing, so a
// shrunken result set can never yield an out-of-range window.
func Paginate(games []domain.GameRecord, page, pageSize int) (items []domain.GameRecord, totalPages int) {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	totalPages = (len(games) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * pageSize
	if start >= len(games) {
		return nil, totalPages
	}
	end := start + pageSize
	if end > len(games) {
		end = len(games)
	}
	return games[start:end], totalPages
}
