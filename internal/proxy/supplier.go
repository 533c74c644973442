package proxy

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

// ErrNoWorkingProxy is returned when proxies were configured but none passed the check.
var ErrNoWorkingProxy = errors.New("no working proxy")

const (
	checkTimeout     = 5 * time.Second
	checkConcurrency = 8
)

// Supplier hands out proxies in round-robin order.
type Supplier interface {
	Get() string
	Len() int
}

type supplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewSupplier builds a Supplier from proxies. When checkURL is set every proxy
// is probed against it in parallel and only working ones are kept; the crawled
// site itself is never used as the probe target.
func NewSupplier(ctx context.Context, proxies []string, checkURL string) (Supplier, error) {
	if len(proxies) == 0 || checkURL == "" {
		return &supplier{proxies: proxies}, nil
	}

	log.Infof("🔄 Testing %d proxies against %s...", len(proxies), checkURL)

	working := make([]bool, len(proxies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)

	for i, proxyURL := range proxies {
		g.Go(func() error {
			log.Debugf("🔄 Testing proxy %d/%d: %s", i+1, len(proxies), proxyURL)
			working[i] = isProxyValid(gctx, proxyURL, checkURL)
			if working[i] {
				log.Infof("✅ Proxy %s is working", proxyURL)
			} else {
				log.Warnf("❌ Proxy %s is not working, skipping", proxyURL)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	valid := make([]string, 0, len(proxies))
	for i, ok := range working {
		if ok {
			valid = append(valid, proxies[i])
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoWorkingProxy
	}

	log.Infof("✅ Proxy supplier ready with %d of %d proxies", len(valid), len(proxies))
	return &supplier{proxies: valid}, nil
}

// Get returns the next proxy URL, or "" when there are none.
func (p *supplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *supplier) Len() int {
	return len(p.proxies)
}

func isProxyValid(ctx context.Context, proxyURL, checkURL string) bool {
	client := resty.New().
		SetTimeout(checkTimeout).
		SetRetryCount(0).
		SetProxy(proxyURL)
	defer client.Close()

	resp, err := client.R().
		SetContext(ctx).
		Get(checkURL)
	if err != nil {
		log.Debugf("Proxy check failed for %s: %v", proxyURL, err)
		return false
	}

	if resp.IsError() {
		log.Debugf("Proxy check failed for %s with status: %s", proxyURL, resp.Status())
		return false
	}

	return true
}
