// Package record defines the raw records the extraction collaborator
// hands to the pipeline: one record per observed page, tagged with a
// kind. Fields the scraper did not see stay at their zero value, which
// the merge policy treats as absent.
package record

import "time"

// Kind tags a record with the entity kind it describes.
type Kind string

// The closed set of record kinds.
const (
	KindStory   Kind = "story"
	KindChapter Kind = "chapter"
	KindUser    Kind = "user"
	KindReview  Kind = "review"
)

// Reviewable target kinds carried by review records.
const (
	ReviewableStory   = "story"
	ReviewableChapter = "chapter"
)

// Record is the closed union over the four raw record types; the router
// switches exhaustively on the concrete type.
type Record interface {
	Kind() Kind
}

// Story is one observation of a story page (listing or detail).
type Story struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Status          string    `json:"status"`
	Likes           int64     `json:"likes"`
	Follows         int64     `json:"follows"`
	Hits            int64     `json:"hits"`
	PublishedOn     time.Time `json:"publishedOn"`
	ReviewedOn      time.Time `json:"reviewedOn"`
	Source          string    `json:"source"`
	Category        string    `json:"category"`
	Genre           string    `json:"genre"`
	Rating          string    `json:"rating"`
	Pairing         string    `json:"pairing"`
	Fandoms         []string  `json:"fandoms"`
	Topics          []string  `json:"topics"`
	Characters      []string  `json:"characters"`
	Tags            []string  `json:"tags"`
	Ratings         []string  `json:"ratings"`
	Pairings        []string  `json:"pairings"`
	AuthorURL       string    `json:"authorUrl"`
	AgeVerification bool      `json:"ageVerification"`
	Redirected      bool      `json:"redirected"`
	Locked          bool      `json:"locked"`
	TotalChapters   int64     `json:"totalChapterCount"`
	TotalReviews    int64     `json:"totalReviewCount"`
}

// Kind implements Record.
func (Story) Kind() Kind { return KindStory }

// Chapter is one observation of a chapter page.
type Chapter struct {
	URL         string    `json:"url"`
	StoryURL    string    `json:"storyUrl"`
	Number      int64     `json:"number"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Notes       string    `json:"notes"`
	PublishedOn time.Time `json:"publishedOn"`
	ReviewedOn  time.Time `json:"reviewedOn"`
}

// Kind implements Record.
func (Chapter) Kind() Kind { return KindChapter }

// User is one observation of a user profile page.
type User struct {
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	JoinedOn  time.Time `json:"joinedOn"`
	LocatedAt string    `json:"locatedAt"`
	Country   string    `json:"country"`
	Gender    string    `json:"gender"`
	Age       string    `json:"age"`
	Bio       string    `json:"bio"`
	Source    string    `json:"source"`
}

// Kind implements Record.
func (User) Kind() Kind { return KindUser }

// Review is one observation of a review. An empty UserURL means the
// review was posted anonymously. Parent, when set, carries the review
// this one replies to; the chain resolves parent-first.
type Review struct {
	URL            string    `json:"url"`
	UserURL        string    `json:"userUrl"`
	Content        string    `json:"content"`
	ReviewedAt     time.Time `json:"reviewedAt"`
	ReviewableType string    `json:"reviewableType"`
	ReviewableURL  string    `json:"reviewableUrl"`
	ChapterNumber  int64     `json:"chapterNumber"`
	StoryURL       string    `json:"storyUrl"`
	Parent         *Review   `json:"parent,omitempty"`
}

// Kind implements Record.
func (Review) Kind() Kind { return KindReview }
