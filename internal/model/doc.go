// Package model defines the data structures shared across e6dl.
//
// # Post
//
// Post represents one search result as returned by the posts API.
// Posts are decoded once from a page response and are read-only from
// then on:
//
//	var page struct {
//	    Posts []model.Post `json:"posts"`
//	}
//	json.Unmarshal(body, &page)
//	fmt.Println(page.Posts[0].FileName()) // e.g. "12345.png"
//
// # Rating
//
// Rating is a small enum over safe/questionable/explicit. The API
// transmits ratings as single letters ("s", "q", "e"); Rating decodes
// those and prints the full name via String().
//
// # Tags
//
// Tags holds the per-category tag lists. Use Contains to test
// membership across every category at once:
//
//	if post.Tags.Contains("solo") { ... }
package model
