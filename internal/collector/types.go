// Package collector defines the record types and Kafka event schemas used by
// the data-collection pipeline (Reddit posts and PubMed paper records).
package collector

import "time"

// Source identifies where a document was collected from.
type Source string

const (
	SourceReddit Source = "reddit"
	SourcePubMed Source = "pubmed"
)

// Post is a collected patient-report document (a Reddit submission).
type Post struct {
	ExternalID string    `json:"external_id"`
	Subreddit  string    `json:"subreddit"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Author     string    `json:"author"`
	Permalink  string    `json:"permalink"`
	CreatedAt  time.Time `json:"created_at"`
}

// Paper is a collected literature record (a PubMed summary).
type Paper struct {
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Journal  string `json:"journal"`
	PubDate  string `json:"pub_date"`
	Query    string `json:"query"`
}

// PostEvent is the Kafka message payload produced after a document is
// persisted and ready for symptom extraction. Papers are carried through the
// same event shape with Source set to pubmed and the abstract as Body.
type PostEvent struct {
	PostID      string    `json:"post_id"`
	Source      Source    `json:"source"`
	ExternalID  string    `json:"external_id"`
	Subreddit   string    `json:"subreddit,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CollectedAt time.Time `json:"collected_at"`
}
