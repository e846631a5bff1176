package dyndns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
)

// WebResolver constructs a resolver which uses external web services to look
// up a "public" IP address.
//
// Each serviceURL must speak http and return status "200 OK" with a valid
// IPv4 or IPv6 address either as the first line of the response body or
// somewhere in the text of an HTML page (the checkip.dyndns.org response
// style). All other responses are considered an error.
//
// If only one serviceURL is given,
// then the resolver will simply return the response.
// If multiple are given,
// then the resolver will request from up to three of them and only return
// successfully if two non-error responses agreed on the IP.
// This approach is taken due to the sensitive nature of having control over
// DNS records.
//
// The recommended approach is to run your own service over https.
func WebResolver(serviceURL ...string) Resolver {
	return &webResolver{serviceURLs: serviceURL}
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []string
}

// Resolve implements Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(wr.serviceURLs) == 0 {
		return netip.Addr{}, errors.New("no external IP lookup services were provided")
	}
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr netip.Addr
		err  error
	}

	useCount := 3
	if len(wr.serviceURLs) < useCount {
		useCount = len(wr.serviceURLs)
	}

	results := make(chan result, useCount)
	var wg sync.WaitGroup
	wg.Add(useCount)
	for i := 0; i < useCount; i++ {
		u := wr.serviceURLs[i]
		go func() {
			defer wg.Done()
			r := result{}
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	resultCount := 0
	var errs []error
	var ip netip.Addr
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		resultCount++ // don't increase the result count for errors
		if !ip.IsValid() {
			ip = r.addr
			continue
		}
		if ip == r.addr {
			return ip, nil
		}
	}
	if resultCount < 2 {
		return netip.Addr{}, fmt.Errorf("not enough lookup services responded without errors: %w", errors.Join(errs...))
	}

	return netip.Addr{}, errors.New("IP lookup services did not agree on our IP")
}

func (wr *webResolver) lookup(ctx context.Context, serviceURL string) (netip.Addr, error) {
	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that all calls to resolve will eventually complete even
	// if the caller supplied context.TODO or context.Background
	// using http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serviceURL, nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error reading response body: %w", err)
	}
	return parseAddrFromBody(body)
}

// parseAddrFromBody accepts either a bare IP on the first line of the body
// or an HTML page whose text contains one, e.g.
// "<body>Current IP Address: 203.0.113.9</body>".
func parseAddrFromBody(body []byte) (netip.Addr, error) {
	line := string(body)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(line)); err == nil {
		return addr, nil
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return netip.Addr{}, errors.New("no IP address found in response body")
		case html.TextToken:
			for _, field := range strings.Fields(string(z.Text())) {
				if addr, err := netip.ParseAddr(strings.Trim(field, ".,")); err == nil {
					return addr, nil
				}
			}
		}
	}
}
