// Package download orchestrates collecting search results and
// downloading their assets.
//
// # Manager
//
// The Manager runs the pipeline in two phases:
//
//  1. CollectPages walks the configured page range and gathers posts
//  2. StartDownloads fans the posts out over a bounded worker pool
//
// # Basic Usage
//
//	client := api.DefaultClient(settings.UserAgent, settings.RequestTimeoutSeconds)
//	manager, err := download.NewManager(settings, client, client, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	posts, err := manager.CollectPages(ctx, "canine order:score")
//	err = manager.StartDownloads(ctx, posts)
//
// # Failure policy
//
// A batch of N posts should yield as many files as can be fetched.
// Failed pages and failed posts are reported through the progress
// callback and skipped; nothing short of an unusable output directory
// aborts the run. Posts without a downloadable asset (restricted
// content) report model.ErrNoFile.
//
// # Concurrency
//
// StartDownloads keeps at most Settings.Concurrency downloads in
// flight, via an errgroup limit. Posts are dispatched in input order
// and complete in whatever order the network allows. Workers share
// nothing mutable except the filesystem, where group-directory creation
// is idempotent; each post writes to its own <id>.<ext> target.
package download
