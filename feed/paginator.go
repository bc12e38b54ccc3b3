package feed

import (
	"context"

	"go.uber.org/zap"

	"github.com/teatime/teatime/models"
)

// LoadPage fetches one page of the current tab. Page 0 replaces the list, later pages
// append posts whose id is not loaded yet. On error the list is left as it was.
func (f *Feed) LoadPage(ctx context.Context, page int) error {
	if page < 0 {
		page = 0
	}
	f.mu.Lock()
	tab, gen := f.tab, f.gen
	f.mu.Unlock()

	var (
		posts []models.Post
		err   error
	)
	if tab == TabTrending {
		page = 0
		posts, err = f.src.Trending(ctx, f.collegeID, f.viewerID, f.trendingLimit)
	} else {
		posts, err = f.src.Feed(ctx, f.collegeID, f.viewerID, page, f.pageSize)
	}
	if err != nil {
		f.log.Error("load feed page failed",
			zap.String("tab", tab.String()), zap.Int("page", page), zap.Error(err))
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		f.log.Debug("dropping page of a previous tab", zap.String("tab", tab.String()), zap.Int("page", page))
		return nil
	}

	if page == 0 {
		f.items = make([]models.Post, 0, len(posts))
		f.index = make(map[string]int, len(posts))
		f.epoch++
	}
	for _, p := range posts {
		if _, dup := f.index[p.ID]; dup {
			continue
		}
		f.index[p.ID] = len(f.items)
		f.items = append(f.items, p.Clone())
	}
	f.page = page
	if tab == TabTrending {
		f.hasMore = false
	} else {
		// a full page means there may be more, even when it was the last one
		f.hasMore = len(posts) == f.pageSize
	}
	return nil
}

// LoadMore fetches the next page of the latest tab. It does nothing on the trending
// tab or once a short page was seen. Overlapping calls are not suppressed.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.tab == TabTrending || !f.hasMore {
		f.mu.Unlock()
		return nil
	}
	next := f.page + 1
	f.mu.Unlock()
	return f.LoadPage(ctx, next)
}

// Refresh reloads page 0 of the current tab.
func (f *Feed) Refresh(ctx context.Context) error {
	return f.LoadPage(ctx, 0)
}

// SwitchTab clears the list, resets the page index and loads page 0 of tab.
// Responses still in flight for the previous tab are discarded.
func (f *Feed) SwitchTab(ctx context.Context, tab Tab) error {
	f.mu.Lock()
	f.tab = tab
	f.page = 0
	f.items = nil
	f.index = map[string]int{}
	f.hasMore = tab == TabLatest
	f.gen++
	f.epoch++
	f.mu.Unlock()
	return f.LoadPage(ctx, 0)
}
