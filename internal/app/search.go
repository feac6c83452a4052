package app

import (
	"context"
	"strings"
)

// ImportantResults is how many leading results are flagged as important on
// each page. Purely positional; paper content never affects it.
const ImportantResults = 3

// SearchController drives paginated, query-keyed search over the paper
// corpus. It is the sole owner of the current query, page, and result set.
//
// Network work is split into three phases so the single-threaded caller can
// suspend between them: Begin validates and stamps a request, Execute does
// the round-trip (safe off-loop, it never touches controller state), and
// Apply folds the outcome back in. Apply drops outcomes whose token is no
// longer current, so a response that arrives after a newer search was issued
// cannot clobber the newer result set.
type SearchController struct {
	client   *Client
	logger   *Logger
	pageSize int

	query      string
	page       int
	totalPages int
	papers     []Paper
	seq        uint64
}

type SearchRequest struct {
	Query string
	Page  int
	token uint64
}

type SearchOutcome struct {
	Request SearchRequest
	Papers  []Paper
	Total   int
	Err     error
}

func NewSearchController(client *Client, logger *Logger, pageSize int) *SearchController {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &SearchController{
		client:     client,
		logger:     logger,
		pageSize:   pageSize,
		page:       1,
		totalPages: 1,
	}
}

// Begin validates and registers a new search. A changed query always resets
// to page 1 and discards the previous result set; partial merges across
// queries are never produced. The requested page is committed by Apply, not
// here, so a failed fetch leaves the pager on the page whose results are
// still showing.
func (s *SearchController) Begin(query string, page int) (SearchRequest, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchRequest{}, validationErr(CodeEmptyQuery, "enter a search query")
	}
	if page < 1 {
		page = 1
	}
	if query != s.query {
		page = 1
		s.query = query
		s.page = 1
		s.papers = nil
		s.totalPages = 1
	}
	s.seq++
	return SearchRequest{Query: query, Page: page, token: s.seq}, nil
}

// Execute performs the round-trip for a request produced by Begin. It does
// not mutate the controller.
func (s *SearchController) Execute(ctx context.Context, req SearchRequest) SearchOutcome {
	offset := (req.Page - 1) * s.pageSize
	resp, err := s.client.SearchPapers(ctx, req.Query, s.pageSize, offset)
	if err != nil {
		return SearchOutcome{Request: req, Err: err}
	}
	return SearchOutcome{Request: req, Papers: resp.Papers, Total: resp.Total}
}

// Apply folds a completed search back into the controller, committing the
// request's page along with its results. It reports false for stale outcomes
// (a newer Begin superseded the request) and for transport failures, which
// keep the previous page and result set.
func (s *SearchController) Apply(out SearchOutcome) bool {
	if out.Request.token != s.seq {
		return false
	}
	if out.Err != nil {
		s.logger.Error("search failed", map[string]interface{}{
			"query": out.Request.Query,
			"page":  out.Request.Page,
			"error": out.Err.Error(),
		})
		return false
	}
	s.page = out.Request.Page
	s.papers = out.Papers
	s.totalPages = pageCount(out.Total, s.pageSize)
	return true
}

// pageCount never returns less than 1, so pagination controls have a valid
// denominator even for empty result sets.
func pageCount(total, pageSize int) int {
	if total <= 0 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (s *SearchController) Query() string   { return s.query }
func (s *SearchController) Page() int       { return s.page }
func (s *SearchController) TotalPages() int { return s.totalPages }
func (s *SearchController) Papers() []Paper { return s.papers }
func (s *SearchController) PageSize() int   { return s.pageSize }

// HasNextPage and HasPrevPage gate the pagination controls.
func (s *SearchController) HasNextPage() bool { return s.page < s.totalPages }
func (s *SearchController) HasPrevPage() bool { return s.page > 1 }

// Important reports whether the result at rank is flagged for emphasis.
// Ranks 0..min(3, n)-1 are important regardless of paper content.
func (s *SearchController) Important(rank int) bool {
	n := len(s.papers)
	limit := ImportantResults
	if n < limit {
		limit = n
	}
	return rank >= 0 && rank < limit
}
