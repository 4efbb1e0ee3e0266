package paging

import (
	"context"
	"fmt"

	"github.com/Joseda-hg/taskdeck/internal/db"
)

// PageSizes are the page sizes offered by the frontends.
var PageSizes = []int{5, 10, 15, 20}

const DefaultPageSize = 10

// Source runs a query once.
type Source interface {
	RunQuery(ctx context.Context, collection string, preds ...db.Predicate) ([]db.Document, error)
}

// Paginator turns the predicates of an ordered query into the predicates of one page.
// ok is false when the page starts past the end of the result.
type Paginator interface {
	Page(ctx context.Context, collection string, base []db.Predicate, page, size int) (preds []db.Predicate, ok bool, err error)
}

// CursorPaginator emulates offsets on a cursor-only store. Every page after the first costs a
// query reading all skipped documents, so page loads are O(skip).
type CursorPaginator struct {
	Source Source
}

func NewCursorPaginator(source Source) *CursorPaginator {
	return &CursorPaginator{Source: source}
}

func (p *CursorPaginator) Page(ctx context.Context, collection string, base []db.Predicate, page, size int) ([]db.Predicate, bool, error) {
	if size <= 0 {
		return nil, false, fmt.Errorf("page size %d: must be positive", size)
	}
	if page < 1 {
		return nil, false, nil
	}

	preds := append([]db.Predicate(nil), base...)
	skip := (page - 1) * size
	if skip == 0 {
		return append(preds, db.Limit(size)), true, nil
	}

	skipped, err := p.Source.RunQuery(ctx, collection, append(preds, db.Limit(skip))...)
	if err != nil {
		return nil, false, fmt.Errorf("find page cursor: %w", err)
	}
	if len(skipped) < skip {
		return nil, false, nil
	}
	cursor := skipped[len(skipped)-1]
	return append(preds, db.StartAfter(cursor), db.Limit(size)), true, nil
}

func TotalPages(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ValidPage reports whether page exists for total items.
func ValidPage(page, size, total int) bool {
	return page >= 1 && page <= TotalPages(total, size)
}

// ClampPage moves page back into range, never below 1.
func ClampPage(page, size, total int) int {
	last := max(1, TotalPages(total, size))
	if page > last {
		return last
	}
	if page < 1 {
		return 1
	}
	return page
}

// Window returns the 1-based indexes of the first and last item shown on page.
func Window(page, size, total int) (start, end int) {
	start = min((page-1)*size+1, total)
	end = min(page*size, total)
	return start, end
}

func Summary(page, size, total int) string {
	if total == 0 {
		return "No tasks"
	}
	start, end := Window(page, size, total)
	noun := "tasks"
	if total == 1 {
		noun = "task"
	}
	return fmt.Sprintf("Showing %d-%d of %d %s", start, end, total, noun)
}

func PageLabel(page, size, total int) string {
	return fmt.Sprintf("Page %d of %d", page, max(TotalPages(total, size), 1))
}

// ValidPageSize reports whether size is one of PageSizes.
func ValidPageSize(size int) bool {
	for _, candidate := range PageSizes {
		if candidate == size {
			return true
		}
	}
	return false
}
