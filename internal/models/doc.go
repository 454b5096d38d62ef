// Package models defines the domain entities of the vibelist playlist generator.
//
// Value types passed through the generation pipeline:
//   - [MusicParameters] : the parameter vector that describes the desired sound
//   - [GenerationRequest] : tagged request variant (vibe text, history signals, explicit vector)
//   - [TrackRef], [ImageRef] : resolved catalog tracks and generated cover art
//
// Persistent entities, stored through the repositories package:
//   - [User] : a local account linked to a Spotify user
//   - [Subscription] : the user's plan, which drives the monthly quota
//   - [GenerationResult] : an immutable record of one successful pipeline run
//   - [MoodTemplate] : a named parameter vector for quick generation
//   - [Feedback] : a user's rating of a generated playlist
//
// Persistent entities embed [Base], which supplies ID, sequence, and timestamps.
package models
