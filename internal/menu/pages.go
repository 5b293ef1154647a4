package menu

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPageOutOfRange is returned by a [PageSource] for an invalid page index.
var ErrPageOutOfRange = errors.New("menu: page out of range")

// PageSource slices content into pages.
type PageSource interface {
	// PageCount returns the number of pages; always at least 1.
	PageCount() int

	// RenderPage renders the zero-based page.
	RenderPage(ctx context.Context, page int) (View, error)
}

// Entry is one numbered item of a [ListSource] page. Number is the one-based
// position of the item in the whole list.
type Entry[T any] struct {
	Number int
	Item   T
}

// FormatFunc renders one page of entries. page is zero-based.
type FormatFunc[T any] func(entries []Entry[T], page, pages int) View

// ListSource is a [PageSource] over a fixed slice.
type ListSource[T any] struct {
	items   []T
	perPage int
	format  FormatFunc[T]
	empty   View
}

// NewListSource pages items perPage at a time. empty is rendered as the only
// page when items is empty. perPage values below 1 are treated as 1.
func NewListSource[T any](items []T, perPage int, format FormatFunc[T], empty View) *ListSource[T] {
	if perPage < 1 {
		perPage = 1
	}
	return &ListSource[T]{
		items:   append([]T(nil), items...),
		perPage: perPage,
		format:  format,
		empty:   empty,
	}
}

// PageCount implements [PageSource].
func (s *ListSource[T]) PageCount() int {
	if len(s.items) == 0 {
		return 1
	}
	return (len(s.items) + s.perPage - 1) / s.perPage
}

// RenderPage implements [PageSource].
func (s *ListSource[T]) RenderPage(_ context.Context, page int) (View, error) {
	pages := s.PageCount()
	if page < 0 || page >= pages {
		return View{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page+1, pages)
	}
	if len(s.items) == 0 {
		return s.empty, nil
	}
	return s.format(s.Page(page), page, pages), nil
}

// Page returns the entries of the zero-based page, or nil when out of range.
func (s *ListSource[T]) Page(page int) []Entry[T] {
	start := page * s.perPage
	if page < 0 || start >= len(s.items) {
		return nil
	}
	end := min(start+s.perPage, len(s.items))
	entries := make([]Entry[T], 0, end-start)
	for i := start; i < end; i++ {
		entries = append(entries, Entry[T]{Number: i + 1, Item: s.items[i]})
	}
	return entries
}

// Len returns the number of items.
func (s *ListSource[T]) Len() int {
	return len(s.items)
}

// Pagination control symbols.
const (
	SymbolFirst    = "⏮️"
	SymbolPrevious = "◀️"
	SymbolNext     = "▶️"
	SymbolLast     = "⏭️"
	SymbolStop     = "⏹️"
)

// Pages is a menu that flips through a [PageSource].
type Pages struct {
	*Menu

	source PageSource

	mu      sync.Mutex
	current int
}

// NewPages creates a pagination menu over source. With a single page no
// controls are attached and the menu stops right after rendering. The
// first/last controls are only offered for more than two pages.
func NewPages(host Host, source PageSource, opts Options) *Pages {
	if opts.Kind == "" {
		opts.Kind = "pages"
	}
	p := &Pages{source: source}

	var buttons []Button
	if n := source.PageCount(); n > 1 {
		skip := n > 2
		if skip {
			buttons = append(buttons, Button{Symbol: SymbolFirst, Handler: p.first})
		}
		buttons = append(buttons,
			Button{Symbol: SymbolPrevious, Handler: p.previous},
			Button{Symbol: SymbolNext, Handler: p.next},
		)
		if skip {
			buttons = append(buttons, Button{Symbol: SymbolLast, Handler: p.last})
		}
		buttons = append(buttons, Button{Symbol: SymbolStop, Handler: p.stop})
	}
	p.Menu = New(host, ContentFunc(p.render), opts, buttons...)
	return p
}

// CurrentPage returns the zero-based page on display.
func (p *Pages) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ShowPage flips to the zero-based page. Out-of-range pages are ignored.
func (p *Pages) ShowPage(ctx context.Context, page int) error {
	if page < 0 || page >= p.source.PageCount() {
		return nil
	}
	p.mu.Lock()
	p.current = page
	p.mu.Unlock()
	return p.Refresh(ctx)
}

func (p *Pages) render(ctx context.Context) (View, error) {
	return p.source.RenderPage(ctx, p.CurrentPage())
}

func (p *Pages) first(ctx context.Context, _ Input) error {
	return p.ShowPage(ctx, 0)
}

func (p *Pages) previous(ctx context.Context, _ Input) error {
	return p.ShowPage(ctx, p.CurrentPage()-1)
}

func (p *Pages) next(ctx context.Context, _ Input) error {
	return p.ShowPage(ctx, p.CurrentPage()+1)
}

func (p *Pages) last(ctx context.Context, _ Input) error {
	return p.ShowPage(ctx, p.source.PageCount()-1)
}

func (p *Pages) stop(context.Context, Input) error {
	p.Stop()
	return nil
}
