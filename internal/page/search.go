package page

import (
	"context"
)

// SearchPage drives a keyword search box and its result list
type SearchPage struct {
	*Base
}

// NewSearchPage creates the search_page object
func NewSearchPage(deps Deps) Object {
	p := &SearchPage{Base: NewBase("search_page", deps)}

	p.RegisterAction("perform_search", "Search for a keyword and wait for results", []string{"keyword"},
		func(ctx context.Context, args ...any) error {
			if err := Arity("perform_search", args, 1); err != nil {
				return err
			}
			keyword, err := StringArg("perform_search", args, 0)
			if err != nil {
				return err
			}
			return p.PerformSearch(ctx, keyword)
		})

	p.RegisterQuery("get_search_result_count", "Number of result items, 0 when no results are shown",
		func(ctx context.Context) (any, error) {
			return p.ResultCount(ctx)
		})
	p.RegisterQuery("is_no_results_message_displayed", "Whether the no results message is visible",
		func(ctx context.Context) (any, error) {
			return p.Visible(ctx, "no_results_message")
		})

	return p
}

// PerformSearch fills the search input, submits and waits for the page to settle
func (p *SearchPage) PerformSearch(ctx context.Context, keyword string) error {
	if err := p.Fill(ctx, keyword, "search_input"); err != nil {
		return err
	}
	if err := p.Click(ctx, "search_button"); err != nil {
		return err
	}
	return p.WaitForPageReady(ctx)
}

// ResultCount returns 0 when the results container is hidden
func (p *SearchPage) ResultCount(ctx context.Context) (int, error) {
	visible, err := p.Visible(ctx, "results_container")
	if err != nil {
		return 0, err
	}
	if !visible {
		return 0, nil
	}
	return p.Count(ctx, "result_item")
}
