package menu_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/cadence/internal/menu"
)

func formatNumbers(entries []menu.Entry[string], page, pages int) menu.View {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d.%s ", e.Number, e.Item)
	}
	return menu.View{Description: strings.TrimSpace(b.String()), Footer: fmt.Sprintf("Page %d/%d", page+1, pages)}
}

var emptyView = menu.View{Description: "Nothing here!"}

func TestListSource_PageCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		items, perPage, want int
	}{
		{items: 0, perPage: 5, want: 1},
		{items: 1, perPage: 5, want: 1},
		{items: 5, perPage: 5, want: 1},
		{items: 6, perPage: 5, want: 2},
		{items: 100, perPage: 5, want: 20},
		{items: 3, perPage: 0, want: 3},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.items, tc.perPage), func(t *testing.T) {
			t.Parallel()
			src := menu.NewListSource(make([]string, tc.items), tc.perPage, formatNumbers, emptyView)
			if got := src.PageCount(); got != tc.want {
				t.Errorf("PageCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestListSource_EmptyRendersNothingHerePage(t *testing.T) {
	t.Parallel()
	src := menu.NewListSource[string](nil, 5, formatNumbers, emptyView)

	if src.PageCount() != 1 {
		t.Fatalf("PageCount() = %d, want 1", src.PageCount())
	}
	v, err := src.RenderPage(context.Background(), 0)
	if err != nil {
		t.Fatalf("RenderPage(0): %v", err)
	}
	if v.Description != "Nothing here!" {
		t.Errorf("empty page = %+v", v)
	}
	if _, err := src.RenderPage(context.Background(), 1); !errors.Is(err, menu.ErrPageOutOfRange) {
		t.Errorf("RenderPage(1) err = %v, want ErrPageOutOfRange", err)
	}
}

func TestListSource_RenderPageNumbersGlobally(t *testing.T) {
	t.Parallel()
	src := menu.NewListSource([]string{"a", "b", "c", "d", "e", "f", "g"}, 3, formatNumbers, emptyView)

	tests := []struct {
		page int
		want string
	}{
		{0, "1.a 2.b 3.c"},
		{1, "4.d 5.e 6.f"},
		{2, "7.g"},
	}
	for _, tc := range tests {
		v, err := src.RenderPage(context.Background(), tc.page)
		if err != nil {
			t.Fatalf("RenderPage(%d): %v", tc.page, err)
		}
		if v.Description != tc.want {
			t.Errorf("page %d = %q, want %q", tc.page, v.Description, tc.want)
		}
		if want := fmt.Sprintf("Page %d/3", tc.page+1); v.Footer != want {
			t.Errorf("footer = %q, want %q", v.Footer, want)
		}
	}
	if _, err := src.RenderPage(context.Background(), -1); !errors.Is(err, menu.ErrPageOutOfRange) {
		t.Errorf("RenderPage(-1) err = %v", err)
	}
}

func TestListSource_CopiesItems(t *testing.T) {
	t.Parallel()
	items := []string{"a"}
	src := menu.NewListSource(items, 5, formatNumbers, emptyView)
	items[0] = "z"
	if got := src.Page(0)[0].Item; got != "a" {
		t.Errorf("source shares caller slice, item = %q", got)
	}
	if src.Len() != 1 {
		t.Errorf("Len() = %d", src.Len())
	}
}

func TestPages_Controls(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items int
		want  []string
	}{
		{"single page", 3, nil},
		{"two pages", 8, []string{menu.SymbolPrevious, menu.SymbolNext, menu.SymbolStop}},
		{"many pages", 20, []string{menu.SymbolFirst, menu.SymbolPrevious, menu.SymbolNext, menu.SymbolLast, menu.SymbolStop}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			host, r, _ := newHost()
			src := menu.NewListSource(make([]string, tc.items), 5, formatNumbers, emptyView)
			p := menu.NewPages(host, src, menu.Options{})
			if err := p.Start(context.Background(), "c", "u"); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer p.Stop()

			if tc.want == nil {
				waitDone(t, p.Menu)
				msg, _ := r.Message(p.Message().ID)
				if len(msg.Controls) != 0 {
					t.Errorf("single page got controls %v", msg.Controls)
				}
				return
			}
			eventually(t, func() bool {
				msg, _ := r.Message(p.Message().ID)
				return slices.Equal(msg.Controls, tc.want)
			}, "unexpected controls")
		})
	}
}

func TestPages_Navigation(t *testing.T) {
	t.Parallel()
	host, r, inputs := newHost()

	items := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"}
	p := menu.NewPages(host, menu.NewListSource(items, 5, formatNumbers, emptyView), menu.Options{})
	if err := p.Start(context.Background(), "c", "u"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := p.Message().ID

	steps := []struct {
		symbol string
		page   int
	}{
		{menu.SymbolPrevious, 0}, // already on first page
		{menu.SymbolNext, 1},
		{menu.SymbolLast, 2},
		{menu.SymbolNext, 2}, // already on last page
		{menu.SymbolFirst, 0},
	}
	for _, st := range steps {
		inputs.Press(id, st.symbol, "u")
		eventually(t, func() bool { return p.CurrentPage() == st.page }, "page did not change")
	}
	eventually(t, func() bool {
		msg, _ := r.Message(id)
		return msg.Last().Footer == "Page 1/3"
	}, "view not refreshed")

	inputs.Press(id, menu.SymbolStop, "u")
	waitDone(t, p.Menu)
}

func TestPages_ShowPageOutOfRangeIgnored(t *testing.T) {
	t.Parallel()
	host, _, _ := newHost()
	p := menu.NewPages(host, menu.NewListSource(make([]string, 12), 5, formatNumbers, emptyView), menu.Options{})

	if err := p.ShowPage(context.Background(), 7); err != nil {
		t.Fatalf("ShowPage: %v", err)
	}
	if p.CurrentPage() != 0 {
		t.Errorf("CurrentPage() = %d, want 0", p.CurrentPage())
	}
}
