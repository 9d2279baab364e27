// Package api provides the client for the posts search service.
//
// The package handles two operations:
//
//  1. Searching one page of posts matching a tag expression
//  2. Downloading a post's asset to a local file
//
// # Searching
//
//	client := api.DefaultClient("e6dl (go edition)", 60)
//	posts, err := client.SearchPosts(ctx, "canine order:score", 50, "1", false)
//
// The page token may be a page number or the service's before/after
// syntax ("b12345" returns posts before post 12345). The token is not
// interpreted locally.
//
// # Domains
//
// The service runs two domains with different content policies. The
// sfw argument selects the filtered one; everything else about the
// request is identical.
package api
