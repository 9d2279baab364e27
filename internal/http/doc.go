// Package http provides an HTTP client configured for the posts API.
//
// The Client in this package handles:
//   - The project User-Agent header the service requires
//   - Streaming file downloads with optional progress tracking
//   - Timeout handling
//
// # Basic Usage
//
//	client := http.NewClient("e6dl (go edition)", 60*time.Second)
//
//	// Fetch a JSON payload
//	body, err := client.Get(ctx, searchURL)
//
//	// Download a post's asset with a progress callback
//	client.DownloadFile(ctx, fileURL, "./out/12345.png", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
package http
