package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"catalog/crawler/internal/client"
	"catalog/crawler/internal/config"
	"catalog/crawler/internal/domain"
	"catalog/crawler/internal/parser"
	"catalog/crawler/internal/repository"
	"catalog/crawler/internal/state"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// DayScope selects which days of a month get their products collected.
type DayScope int

const (
	NoDays   DayScope = iota // catalog only
	NewDays                  // days merged during this pass
	AllDays                  // every day of the month
)

// CrawlOptions describes one pass over the catalog.
type CrawlOptions struct {
	Years    []int    // empty means every year
	Discover bool     // fetch month indexes, merge days, checkpoint each month
	Collect  DayScope // which days to fetch listings for
}

// CrawlStats summarizes a pass.
type CrawlStats struct {
	Months      int
	DaysAdded   int
	DaysEmitted int
	Products    int
	Requests    int
	Checkpoints int
	Elapsed     time.Duration
}

type Service struct {
	client          client.SourceClient
	selectors       *parser.Selectors
	snapshots       state.SnapshotStore
	repository      repository.CatalogRepository
	urlRoot         string
	firstPageSuffix string
}

func NewService(
	client client.SourceClient,
	selectors *parser.Selectors,
	snapshots state.SnapshotStore,
	repository repository.CatalogRepository,
	source config.SourceConfig,
) *Service {
	return &Service{
		client:          client,
		selectors:       selectors,
		snapshots:       snapshots,
		repository:      repository,
		urlRoot:         strings.TrimSuffix(source.URLRoot, "/"),
		firstPageSuffix: source.FirstPageSuffix,
	}
}

// Seed merges the months linked from a saved root index page into the
// catalog snapshot, creating it when absent.
func (s *Service) Seed(ctx context.Context, document string) (int, error) {
	doc, err := parser.Parse(document)
	if err != nil {
		return 0, err
	}

	catalog, err := s.snapshots.Load(ctx)
	if errors.Is(err, state.ErrSnapshotNotFound) {
		log.Info("📄 No catalog yet, starting a new one")
		catalog = domain.Catalog{}
	} else if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	links, diags := parser.IndexLinks(doc, s.selectors.Seed)
	diags.Log(log.WithField("stage", "seed"))

	added := 0
	for _, link := range links {
		url := strings.TrimSuffix(domain.JoinURL(s.urlRoot, link.Href), "/")
		month, err := domain.ParseMonth(url)
		if err != nil {
			return added, err
		}
		if catalog.MergeMonth(month) {
			added++
		}
	}

	if err := s.snapshots.Save(ctx, catalog); err != nil {
		return added, err
	}

	log.Infof("✅ Seeded %d new months (%d total)", added, len(catalog))
	return added, nil
}

// Crawl walks the selected months: optionally discovering new days and
// checkpointing, then collecting the products of the days in scope. Any
// fetch or identifier error aborts the pass.
func (s *Service) Crawl(ctx context.Context, opts CrawlOptions) (*CrawlStats, error) {
	start := time.Now()
	stats := &CrawlStats{}
	requestsBefore := s.client.Requests()
	defer func() {
		stats.Requests = s.client.Requests() - requestsBefore
		stats.Elapsed = time.Since(start)
	}()

	if opts.Collect != NoDays && s.repository == nil {
		return stats, errors.New("no store configured for product collection")
	}

	catalog, err := s.snapshots.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load catalog: %w", err)
	}

	for _, month := range catalog.Select(opts.Years) {
		stats.Months++
		logger := log.WithFields(log.Fields{"year": month.Year, "month": month.Month})
		logger.Infof("🔄 Processing %d/%02d", month.Year, month.Month)

		var added []domain.Day
		if opts.Discover {
			if added, err = s.discoverDays(ctx, month, logger); err != nil {
				return stats, err
			}
			stats.DaysAdded += len(added)
			logger.Infof("📅 %d new days (%d known)", len(added), len(month.Days))
		}

		var days []domain.Day
		switch opts.Collect {
		case NewDays:
			days = added
		case AllDays:
			days = month.Days
		}

		for _, day := range days {
			products, err := s.collectDay(ctx, month, day, logger.WithField("day", day.Day))
			if err != nil {
				return stats, err
			}
			if err := s.repository.SaveDailyProducts(ctx, products); err != nil {
				return stats, err
			}
			stats.DaysEmitted++
			stats.Products += len(products.Products)
			logger.Infof("✅ Stored day %d with %d products", day.Day, len(products.Products))
		}

		if opts.Discover {
			if err := s.snapshots.Save(ctx, catalog); err != nil {
				return stats, fmt.Errorf("checkpoint after %d/%02d: %w", month.Year, month.Month, err)
			}
			stats.Checkpoints++
		}
	}

	return stats, nil
}

// LoadCatalog bulk-inserts every month of the snapshot into the store.
func (s *Service) LoadCatalog(ctx context.Context) (int, error) {
	if s.repository == nil {
		return 0, errors.New("no store configured")
	}

	catalog, err := s.snapshots.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load catalog: %w", err)
	}

	n, err := s.repository.SaveMonths(ctx, catalog)
	if err != nil {
		return n, err
	}

	log.Infof("✅ Inserted %d months", n)
	return n, nil
}

// discoverDays merges the first-page day links of the month index into month
// and returns the days that were not known before.
func (s *Service) discoverDays(ctx context.Context, month *domain.Month, logger *log.Entry) ([]domain.Day, error) {
	doc, err := s.fetchDocument(ctx, month.URL)
	if err != nil {
		return nil, err
	}

	links, diags := parser.IndexLinks(doc, s.selectors.MonthIndex)
	diags.Log(logger)

	var added []domain.Day
	for _, link := range links {
		if !strings.HasSuffix(link.Href, s.firstPageSuffix) {
			continue
		}

		day, err := domain.ParseDay(domain.JoinURL(s.urlRoot, link.Href))
		if err != nil {
			return nil, fmt.Errorf("month %d/%02d: %w", month.Year, month.Month, err)
		}
		if month.MergeDay(day) {
			added = append(added, day)
		}
	}

	return added, nil
}

// collectDay gathers the product descriptions of every listing page of a day.
func (s *Service) collectDay(ctx context.Context, month *domain.Month, day domain.Day, logger *log.Entry) (*domain.DailyProducts, error) {
	logger.Infof("🔎 Day %d", day.Day)

	doc, err := s.fetchDocument(ctx, day.URL)
	if err != nil {
		return nil, err
	}

	products := []domain.ProductDescription{}

	found, diags := parser.Descriptions(doc, s.selectors.Descriptions)
	diags.Log(logger)
	products = append(products, found...)

	pages, diags := parser.Pages(doc, s.selectors.Pages, s.urlRoot)
	diags.Log(logger)

	for _, page := range extraPages(pages) {
		logger.Infof("📄 Page %d", page.PageNumber)

		doc, err := s.fetchDocument(ctx, page.URL)
		if err != nil {
			return nil, err
		}

		found, diags := parser.Descriptions(doc, s.selectors.Descriptions)
		diags.Log(logger.WithField("page", page.PageNumber))
		products = append(products, found...)
	}

	return &domain.DailyProducts{
		Year:     month.Year,
		Month:    month.Month,
		Day:      day.Day,
		Products: products,
	}, nil
}

func (s *Service) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	html, err := s.client.FetchHTML(ctx, url)
	if err != nil {
		return nil, err
	}
	return parser.Parse(html)
}

// extraPages keeps the pages numbered above the first pagination entry (the
// page already fetched), once each, in ascending order.
func extraPages(pages []domain.ListingPage) []domain.ListingPage {
	if len(pages) == 0 {
		return nil
	}

	first := pages[0].PageNumber
	seen := make(map[int]struct{}, len(pages))
	var extra []domain.ListingPage
	for _, p := range pages {
		if p.PageNumber <= first {
			continue
		}
		if _, ok := seen[p.PageNumber]; ok {
			continue
		}
		seen[p.PageNumber] = struct{}{}
		extra = append(extra, p)
	}

	slices.SortFunc(extra, func(a, b domain.ListingPage) int {
		return cmp.Compare(a.PageNumber, b.PageNumber)
	})
	return extra
}
