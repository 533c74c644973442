package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/crawler/internal/client"
	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"
	"catalog/crawler/internal/parser"
	"catalog/crawler/internal/state"
)

const root = "https://example.com"

type fakeSource struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *fakeSource) FetchHTML(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, url)
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("%w: %s: status 404", client.ErrFetchFailed, url)
	}
	return html, nil
}

func (f *fakeSource) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func (f *fakeSource) Close() error { return nil }

type countingStore struct {
	state.SnapshotStore
	saves int
}

func (c *countingStore) Save(ctx context.Context, catalog domain.Catalog) error {
	c.saves++
	return c.SnapshotStore.Save(ctx, catalog)
}

type recordingRepository struct {
	daily  []*domain.DailyProducts
	months []*domain.Month
}

func (r *recordingRepository) SaveDailyProducts(_ context.Context, products *domain.DailyProducts) error {
	r.daily = append(r.daily, products)
	return nil
}

func (r *recordingRepository) SaveMonths(_ context.Context, months []*domain.Month) (int, error) {
	r.months = append(r.months, months...)
	return len(months), nil
}

func (r *recordingRepository) Close(context.Context) error { return nil }

type fixture struct {
	service *Service
	source  *fakeSource
	store   *countingStore
	repo    *recordingRepository
}

func newFixture(t *testing.T, pages map[string]string, initial domain.Catalog) *fixture {
	t.Helper()

	selectors, err := parser.CompileSet(parser.SelectorSet{
		Seed:         parser.SelectorSpec{Container: "table tr td", Anchor: "a"},
		MonthIndex:   parser.SelectorSpec{Container: "html", Anchor: "a"},
		Descriptions: parser.SelectorSpec{Container: "ul", Anchor: "a"},
		Pages:        parser.SelectorSpec{Container: "table", Anchor: "a"},
	})
	require.NoError(t, err)

	store := &countingStore{
		SnapshotStore: state.NewFileSnapshotStore(filepath.Join(t.TempDir(), "root.json"), ".bu"),
	}
	if initial != nil {
		require.NoError(t, store.SnapshotStore.Save(context.Background(), initial))
	}

	f := &fixture{
		source: &fakeSource{pages: pages},
		store:  store,
		repo:   &recordingRepository{},
	}
	f.service = NewService(f.source, selectors, store, f.repo, config.SourceConfig{
		URLRoot:         root,
		FirstPageSuffix: "_1",
	})
	return f
}

func januaryWithDayOne() domain.Catalog {
	return domain.Catalog{
		{Year: 2024, Month: 1, URL: root + "/202401", Days: []domain.Day{
			{Day: 1, URL: root + "/20240101_1"},
		}},
	}
}

func sitePages() map[string]string {
	return map[string]string{
		root + "/202401": `<html><body>
			<a href="20240101_1">1</a>
			<a href="20240101_2">1 (2)</a>
			<a href="20240102_1">2</a>
		</body></html>`,
		root + "/20240101_1": `<html><body>
			<ul><li><a href="/item/z">Widget Z</a></li></ul>
		</body></html>`,
		root + "/20240102_1": `<html><body>
			<ul>
				<li><a href="/item/a">Widget A</a></li>
				<li><a href="/item/b">Widget B</a></li>
			</ul>
			<table><tr>
				<td><a href="20240102_1">1</a></td>
				<td><a href="20240102_2">2</a></td>
			</tr></table>
		</body></html>`,
		root + "/20240102_2": `<html><body>
			<ul><li><a href="/item/c">Widget C</a></li></ul>
			<table><tr>
				<td><a href="20240102_1">1</a></td>
				<td><a href="20240102_2">2</a></td>
			</tr></table>
		</body></html>`,
	}
}

func TestCrawlCollectsNewDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sitePages(), januaryWithDayOne())

	stats, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NewDays})
	require.NoError(t, err)

	assert.Equal(t, []string{
		root + "/202401",
		root + "/20240102_1",
		root + "/20240102_2",
	}, f.source.fetched)

	require.Len(t, f.repo.daily, 1)
	assert.Equal(t, &domain.DailyProducts{
		Year:  2024,
		Month: 1,
		Day:   2,
		Products: []domain.ProductDescription{
			{Description: "Widget A", URL: "/item/a"},
			{Description: "Widget B", URL: "/item/b"},
			{Description: "Widget C", URL: "/item/c"},
		},
	}, f.repo.daily[0])

	catalog, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, []domain.Day{
		{Day: 1, URL: root + "/20240101_1"},
		{Day: 2, URL: root + "/20240102_1"},
	}, catalog[0].Days)

	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, 1, stats.DaysAdded)
	assert.Equal(t, 1, stats.DaysEmitted)
	assert.Equal(t, 3, stats.Products)
	assert.Equal(t, 3, stats.Requests)
}

func TestCrawlIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sitePages(), januaryWithDayOne())

	_, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NewDays})
	require.NoError(t, err)
	first, err := f.store.Load(ctx)
	require.NoError(t, err)

	f.source.fetched = nil
	stats, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NewDays})
	require.NoError(t, err)

	second, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{root + "/202401"}, f.source.fetched)
	assert.Len(t, f.repo.daily, 1)
	assert.Zero(t, stats.DaysAdded)
}

func TestFillOnlyDiscovers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, sitePages(), januaryWithDayOne())

	stats, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NoDays})
	require.NoError(t, err)

	assert.Equal(t, []string{root + "/202401"}, f.source.fetched)
	assert.Empty(t, f.repo.daily)
	assert.Equal(t, 1, stats.DaysAdded)
	assert.Equal(t, 1, stats.Checkpoints)
}

func TestDailyCollectsEveryKnownDay(t *testing.T) {
	ctx := context.Background()
	initial := januaryWithDayOne()
	initial[0].MergeDay(domain.Day{Day: 2, URL: root + "/20240102_1"})
	f := newFixture(t, sitePages(), initial)

	_, err := f.service.Crawl(ctx, CrawlOptions{Collect: AllDays})
	require.NoError(t, err)

	require.Len(t, f.repo.daily, 2)
	assert.Equal(t, 1, f.repo.daily[0].Day)
	assert.Equal(t, []domain.ProductDescription{{Description: "Widget Z", URL: "/item/z"}}, f.repo.daily[0].Products)
	assert.Equal(t, 2, f.repo.daily[1].Day)
	assert.Len(t, f.repo.daily[1].Products, 3)
	assert.NotContains(t, f.source.fetched, root+"/202401", "no discovery without Discover")
	assert.Zero(t, f.store.saves)
}

func TestCrawlDayWithoutProducts(t *testing.T) {
	ctx := context.Background()
	pages := sitePages()
	pages[root+"/20240101_1"] = `<html><body><p>nothing today</p></body></html>`
	f := newFixture(t, pages, januaryWithDayOne())

	_, err := f.service.Crawl(ctx, CrawlOptions{Collect: AllDays, Years: []int{2024}})
	require.NoError(t, err)

	require.Len(t, f.repo.daily, 1)
	assert.NotNil(t, f.repo.daily[0].Products)
	assert.Empty(t, f.repo.daily[0].Products)
}

func TestCrawlAbortsOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	pages := sitePages()
	delete(pages, root+"/202401")
	f := newFixture(t, pages, januaryWithDayOne())

	_, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NewDays})
	require.ErrorIs(t, err, client.ErrFetchFailed)
	assert.Zero(t, f.store.saves)
	assert.Empty(t, f.repo.daily)
}

func TestCrawlAbortsOnExtraPageFailure(t *testing.T) {
	ctx := context.Background()
	pages := sitePages()
	delete(pages, root+"/20240102_2")
	f := newFixture(t, pages, januaryWithDayOne())

	_, err := f.service.Crawl(ctx, CrawlOptions{Discover: true, Collect: NewDays})
	require.ErrorIs(t, err, client.ErrFetchFailed)
	assert.Empty(t, f.repo.daily)
	assert.Zero(t, f.store.saves, "month is not checkpointed after an aborted day")
}

func TestCrawlAbortsOnMalformedDay(t *testing.T) {
	ctx := context.Background()
	pages := sitePages()
	pages[root+"/202401"] = `<html><body><a href="2024_1">broken</a></body></html>`
	f := newFixture(t, pages, januaryWithDayOne())

	_, err := f.service.Crawl(ctx, CrawlOptions{Discover: true})
	require.ErrorIs(t, err, domain.ErrMalformedIdentifier)
	assert.Zero(t, f.store.saves)
}

func TestCrawlYearFilter(t *testing.T) {
	ctx := context.Background()
	initial := januaryWithDayOne()
	initial = append(initial, &domain.Month{Year: 2023, Month: 12, URL: root + "/202312", Days: []domain.Day{}})
	f := newFixture(t, sitePages(), initial)

	stats, err := f.service.Crawl(ctx, CrawlOptions{Years: []int{2023}, Discover: true})
	require.ErrorIs(t, err, client.ErrFetchFailed, "202312 index is not served")
	assert.Equal(t, []string{root + "/202312"}, f.source.fetched)
	assert.Equal(t, 1, stats.Months)
}

func TestCrawlRequiresSnapshot(t *testing.T) {
	f := newFixture(t, sitePages(), nil)

	_, err := f.service.Crawl(context.Background(), CrawlOptions{Discover: true})
	require.ErrorIs(t, err, state.ErrSnapshotNotFound)
	assert.Empty(t, f.source.fetched)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	rootIndex := `<html><body><table>
		<tr><td><a href="/202401/">January</a></td><td><a href="/202402">February</a></td></tr>
		<tr><td><a href="/202401">January again</a></td></tr>
	</table></body></html>`

	added, err := f.service.Seed(ctx, rootIndex)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	catalog, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Catalog{
		{Year: 2024, Month: 1, URL: root + "/202401", Days: []domain.Day{}},
		{Year: 2024, Month: 2, URL: root + "/202402", Days: []domain.Day{}},
	}, catalog)

	added, err = f.service.Seed(ctx, rootIndex)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestSeedRootWithTrailingSlash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	f.service = NewService(f.source, f.service.selectors, f.store, f.repo, config.SourceConfig{
		URLRoot:         root + "/",
		FirstPageSuffix: "_1",
	})

	added, err := f.service.Seed(ctx, `<table><tr>
		<td><a href="202401/">January</a></td>
		<td><a href="/202402">February</a></td>
	</tr></table>`)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	catalog, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, root+"/202401", catalog[0].URL)
	assert.Equal(t, root+"/202402", catalog[1].URL)
}

func TestSeedMalformedMonth(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.service.Seed(context.Background(),
		`<table><tr><td><a href="/about">About</a></td></tr></table>`)
	require.ErrorIs(t, err, domain.ErrMalformedIdentifier)
	assert.Zero(t, f.store.saves)
}

func TestLoadCatalog(t *testing.T) {
	f := newFixture(t, nil, januaryWithDayOne())

	n, err := f.service.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.repo.months, 1)
	assert.Equal(t, 2024, f.repo.months[0].Year)
}

func TestExtraPages(t *testing.T) {
	pages := []domain.ListingPage{
		{PageNumber: 1, URL: "p1"},
		{PageNumber: 3, URL: "p3"},
		{PageNumber: 2, URL: "p2"},
		{PageNumber: 3, URL: "p3-dup"},
		{PageNumber: 1, URL: "p1-again"},
	}

	assert.Equal(t, []domain.ListingPage{
		{PageNumber: 2, URL: "p2"},
		{PageNumber: 3, URL: "p3"},
	}, extraPages(pages))
	assert.Nil(t, extraPages(nil))
}
