package models

import (
	"fmt"

	"github.com/desertthunder/vibelist/internal/shared"
)

type Rating string

const (
	RatingEnjoyed         Rating = "enjoyed"
	RatingPreferDifferent Rating = "prefer_different"
)

// ParseRating parses "enjoyed" or "prefer_different".
func ParseRating(s string) (Rating, error) {
	switch r := Rating(s); r {
	case RatingEnjoyed, RatingPreferDifferent:
		return r, nil
	}
	return "", fmt.Errorf("%w: rating must be enjoyed or prefer_different, got %q", shared.ErrInvalidArgument, s)
}

// Feedback is a user's rating of a generated playlist.
type Feedback struct {
	Base
	generationID string
	userID       string
	rating       Rating
	comment      string
}

func NewFeedback(generationID, userID string, rating Rating, comment string) *Feedback {
	return &Feedback{Base: newBase(), generationID: generationID, userID: userID, rating: rating, comment: comment}
}

func (f *Feedback) GenerationID() string { return f.generationID }
func (f *Feedback) UserID() string       { return f.userID }
func (f *Feedback) Rating() Rating       { return f.rating }
func (f *Feedback) Comment() string      { return f.comment }

func (f *Feedback) Validate() error {
	switch {
	case f.generationID == "" || f.userID == "":
		return fmt.Errorf("%w: generation and user are required", shared.ErrInvalidInput)
	case f.rating != RatingEnjoyed && f.rating != RatingPreferDifferent:
		return fmt.Errorf("%w: invalid rating %q", shared.ErrInvalidInput, f.rating)
	}
	return nil
}
