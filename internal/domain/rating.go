// Package domain contains the core entities of the ratings engine:
// individual votes, per-subject aggregates, and the events that tie
// a vote change to its downstream side effects.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Aggregation method names. A method selects how votes are weighted when
// an average is computed; unrecognized names fall back to MethodAverage.
const (
	// MethodAverage is the plain arithmetic mean over all votes.
	MethodAverage = "average"

	// MethodBalanced weights each vote by the rater's own reputation and
	// excludes self-ratings (a rating whose author is the rated subject).
	MethodBalanced = "balanced"
)

// Rating is a single vote cast by one author on one item.
// At most one logical rating exists per (item, author) pair; casting a
// second vote mutates the existing rating in place.
type Rating struct {
	// ID is the composite rating identifier in the form "item:seq".
	// It is assigned by the store on first save.
	ID string `json:"id"`

	// ItemID references the rated content item. Opaque to this engine.
	ItemID string `json:"itemId"`

	// Author is the user who cast the vote. Opaque to this engine.
	Author string `json:"author"`

	// Vote is the discrete vote value.
	Vote int `json:"vote"`

	// UpdatedAt records when the vote was cast or last changed.
	UpdatedAt time.Time `json:"updatedAt"`
}

// RatingID composes the canonical rating identifier from an item id and
// the rating's sequence number within that item's rating list.
func RatingID(itemID string, seq int) string {
	return itemID + ":" + strconv.Itoa(seq)
}

// ParseRatingID splits a composite rating identifier into its item id and
// sequence number. It returns ErrInvalidRatingID when the separator is
// missing or the sequence is not an integer.
//
// The item id may itself contain the separator; the sequence is taken
// after the last occurrence.
func ParseRatingID(id string) (itemID string, seq int, err error) {
	i := strings.LastIndex(id, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("%w: missing separator in %q", ErrInvalidRatingID, id)
	}
	seq, err = strconv.Atoi(id[i+1:])
	if err != nil || seq < 0 {
		return "", 0, fmt.Errorf("%w: malformed sequence in %q", ErrInvalidRatingID, id)
	}
	return id[:i], seq, nil
}

// AverageRating is an aggregate score for a subject under a named method.
// The subject is either a content item or a user; user-level aggregates
// represent reputation. A stored aggregate is uniquely identified by
// (SubjectID, Method); a virtual aggregate is a transient computation
// result with the same shape.
type AverageRating struct {
	// SubjectID identifies the item or user the aggregate belongs to.
	SubjectID string `json:"subjectId"`

	// Method names the aggregation policy that produced this aggregate.
	Method string `json:"method"`

	// NbVotes is the unweighted count of ratings considered.
	NbVotes int `json:"nbVotes"`

	// AverageVote is the aggregate score.
	AverageVote float64 `json:"averageVote"`
}

// RatingChangedEvent notifies listeners that a vote was created or
// changed. OldVote is zero when the rating is new.
type RatingChangedEvent struct {
	ItemID    string  `json:"itemId"`
	NewRating *Rating `json:"newRating"`
	OldVote   int     `json:"oldVote"`
}
