// package repositories provides SQLite persistence for vibelist's models.
//
// Repositories take a *sql.DB at construction and a context on every call. Rows are soft-deleted
// through deleted_at where a table has one; sequences come from per-table *_sequence rows.
//
// [GenerationRepository] also satisfies the pipeline's result store: it records results and counts
// them per user since a period start, which is how monthly usage is derived.
package repositories
