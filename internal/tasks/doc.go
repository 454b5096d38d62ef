// Package tasks implements the playlist generation pipeline.
//
// # Pipeline
//
// [GenerationEngine.Generate] runs one request through these stages:
//
//  1. Validate the [models.GenerationRequest] variant.
//  2. [QuotaGuard] checks the monthly allowance for the user's plan. Nothing external happens on denial.
//  3. [ParameterTranslator] turns vibe text or listening history into a [models.MusicParameters]
//     vector plus title, description and mood. Explicit vectors from the preview/edit flow skip this.
//  4. [ArtworkSynthesizer] and [RecommendationSource] run concurrently and are joined.
//     Recommendation failure is fatal; artwork failure becomes a warning.
//  5. [PlaylistPublisher] creates the playlist, adds tracks and uploads the cover.
//  6. The [models.GenerationResult] is persisted once the playlist exists, even when partially built.
//
// # Errors
//
// Every failure after validation is a [*GenerationError] carrying an [ErrorKind], the [Phase] reached,
// and the playlist id/url when one was created. It unwraps to the kind's sentinel in package shared
// and to the underlying cause.
//
// # Progress Reporting
//
// Progress is reported on an optional channel with non-blocking sends, so a slow or absent reader
// never stalls the pipeline.
package tasks
