package model

import (
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus accepts only the two literal status values.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusDraft, StatusPublished:
		return Status(s), true
	}
	return "", false
}

// Post is stored and served as-is; there is no separate wire DTO.
type Post struct {
	ID        string    `store:"id" bson:"_id,omitempty" json:"id" dynamodbav:"sk"`
	Title     string    `bson:"title" json:"title" dynamodbav:"title"`
	Content   string    `bson:"content" json:"content" dynamodbav:"content"`
	Tags      []string  `bson:"tags" json:"tags" dynamodbav:"tags"`
	Status    Status    `bson:"status" json:"status" dynamodbav:"status"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt" dynamodbav:"updatedAt"`
}

func (Post) GetCollectionName() string {
	return "posts"
}

// PostFields are the caller-writable parts of a Post.
type PostFields struct {
	Title   string
	Content string
	Tags    []string
	Status  Status
}

// Apply copies the writable fields onto p, keeping id and timestamps.
func (f PostFields) Apply(p *Post) {
	p.Title = f.Title
	p.Content = f.Content
	p.Tags = f.normalizedTags()
	p.Status = f.Status
	if p.Status == "" {
		p.Status = StatusDraft
	}
}

func (f PostFields) normalizedTags() []string {
	if f.Tags == nil {
		return []string{}
	}
	tags := make([]string, len(f.Tags))
	copy(tags, f.Tags)
	return tags
}

// Now returns the current time at the precision the document stores keep.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
