// Package ui implements the interactive preview/edit/generate flow using bubbletea's Elm architecture.
//
// The TUI walks through:
//  1. [InputView] : type a vibe, or press tab to pick a mood template
//  2. [TemplateView] : browse stored mood templates
//  3. [PreviewView] : wait for the model to translate the vibe
//  4. [EditView] : adjust energy, valence and tempo, toggle visibility
//  5. [GenerateView] : follow pipeline progress
//  6. [ResultView] : playlist summary with warnings, open in browser
//
// Previews never count against the monthly quota. Confirming an edit submits the edited vector
// as an explicit-vector request, so the model is not called a second time.
//
// Progress updates flow through a channel from [tasks.GenerationEngine.Generate]; the final
// result arrives on a separate channel once the progress channel closes.
package ui
