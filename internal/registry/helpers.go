package registry

import (
	"context"
	"sync"
)

// BulkFetchPackagesWithConcurrency fetches package metadata for multiple
// PURLs in parallel, capped at concurrency simultaneous requests.
// Individual fetch errors are silently dropped — those PURLs are simply
// absent from the result — matching internal/snapshot's "partial catalog
// beats no catalog" refresh contract.
func BulkFetchPackagesWithConcurrency(ctx context.Context, purls []string, client *Client, concurrency int) map[string]*Package {
	results := make(map[string]*Package)
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, purl := range purls {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			pkg, err := FetchPackageFromPURL(ctx, p, client)
			if err == nil && pkg != nil {
				mu.Lock()
				results[p] = pkg
				mu.Unlock()
			}
		}(purl)
	}

	wg.Wait()
	return results
}
