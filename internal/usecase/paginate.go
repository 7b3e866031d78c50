package usecase

import "ragsearch/internal/domain"

// Paginate slices an ordered candidate list into one page. Candidates keep
// their SourceNumber, so citations stay valid on every page.
func Paginate(candidates []domain.Candidate, page, perPage, defaultPerPage int) domain.PageResult {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage < 1 {
		perPage = 10
	}

	result := domain.PageResult{
		Candidates:     []domain.Candidate{},
		TotalAvailable: len(candidates),
		CurrentPage:    page,
		PerPage:        perPage,
	}

	// compare by division first; page and perPage come from user flags
	if len(candidates) == 0 || page-1 > (len(candidates)-1)/perPage {
		return result
	}
	start := (page - 1) * perPage
	end := len(candidates)
	if perPage < end-start {
		end = start + perPage
	}

	result.Candidates = append(result.Candidates, candidates[start:end]...)
	result.HasNextPage = end < len(candidates)
	return result
}
