package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoFile is returned when a download is attempted for a post whose
// file URL is absent. The API omits the URL when access to the asset is
// restricted, typically because one of the post's tags is blacklisted
// for anonymous users. The post itself is still valid; only the
// download is impossible.
var ErrNoFile = errors.New("post has no downloadable file (a tag might be blacklisted)")

// Post represents one search result from the posts API.
//
// Posts are decoded from a page response and never mutated afterwards,
// so they are safe to share across download workers without locking.
//
// The interesting fields for downloading are ID, File.Ext and File.URL;
// Tags, Pools and Rating drive output grouping. The remaining fields
// mirror the service payload.
type Post struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	Tags        Tags     `json:"tags"`
	File        File     `json:"file"`
	Preview     Preview  `json:"preview"`
	Sample      Sample   `json:"sample"`
	Score       Score    `json:"score"`
	LockedTags  []string `json:"locked_tags"`
	ChangeSeq   int64    `json:"change_seq"`
	Flags       Flags    `json:"flags"`
	Rating      Rating   `json:"rating"`
	FavCount    int      `json:"fav_count"`
	Sources     []string `json:"sources"`
	// Pools lists the IDs of every pool this post belongs to. Empty for
	// posts that are not in any pool.
	Pools         []int64       `json:"pools"`
	Relationships Relationships `json:"relationships"`
	ApproverID    *int64        `json:"approver_id"`
	UploaderID    int64         `json:"uploader_id"`
	CommentCount  int           `json:"comment_count"`
	IsFavorited   bool          `json:"is_favorited"`
	HasNotes      bool          `json:"has_notes"`
	Duration      *float64      `json:"duration"`
}

// FileName returns the local file name for this post, "<id>.<ext>".
func (p *Post) FileName() string {
	return fmt.Sprintf("%d.%s", p.ID, p.File.Ext)
}

// HasFile returns true if the post's asset can be downloaded.
func (p *Post) HasFile() bool {
	return p.File.URL != nil && *p.File.URL != ""
}

// File describes the downloadable asset attached to a post.
type File struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Ext    string `json:"ext"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
	// URL is nil when the asset is restricted (see ErrNoFile).
	URL *string `json:"url"`
}

// Preview is the small thumbnail variant of a post's asset.
type Preview struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	URL    *string `json:"url"`
}

// Sample is the mid-size variant of a post's asset, present for large files.
type Sample struct {
	Has    bool    `json:"has"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	URL    *string `json:"url"`
}

// Score holds a post's vote totals.
type Score struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Total int `json:"total"`
}

// Tags groups a post's tags into the service's disjoint categories.
type Tags struct {
	General   []string `json:"general"`
	Species   []string `json:"species"`
	Character []string `json:"character"`
	Copyright []string `json:"copyright"`
	Artist    []string `json:"artist"`
	Invalid   []string `json:"invalid"`
	Lore      []string `json:"lore"`
	Meta      []string `json:"meta"`
}

// Contains reports whether tag appears in any category.
func (t *Tags) Contains(tag string) bool {
	for _, category := range [][]string{
		t.General, t.Species, t.Character, t.Copyright,
		t.Artist, t.Invalid, t.Lore, t.Meta,
	} {
		for _, candidate := range category {
			if candidate == tag {
				return true
			}
		}
	}
	return false
}

// Flags holds a post's moderation state.
type Flags struct {
	Pending      bool `json:"pending"`
	Flagged      bool `json:"flagged"`
	NoteLocked   bool `json:"note_locked"`
	StatusLocked bool `json:"status_locked"`
	RatingLocked bool `json:"rating_locked"`
	Deleted      bool `json:"deleted"`
}

// Relationships links a post to its parent and children.
type Relationships struct {
	ParentID          *int64  `json:"parent_id"`
	HasChildren       bool    `json:"has_children"`
	HasActiveChildren bool    `json:"has_active_children"`
	Children          []int64 `json:"children"`
}

// Rating classifies a post's audience suitability.
type Rating int

const (
	RatingSafe Rating = iota
	RatingQuestionable
	RatingExplicit
)

// String returns the full rating name, e.g. "safe" for the wire value "s".
func (r Rating) String() string {
	switch r {
	case RatingSafe:
		return "safe"
	case RatingQuestionable:
		return "questionable"
	case RatingExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// UnmarshalJSON decodes the API's one-letter rating form ("s", "q", "e").
func (r *Rating) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "s":
		*r = RatingSafe
	case "q":
		*r = RatingQuestionable
	case "e":
		*r = RatingExplicit
	default:
		return fmt.Errorf("unknown rating %q", s)
	}

	return nil
}
