// Package core implements the spreadsheet splitting pipeline.
//
// # Overview
//
// The pipeline ingests one xlsx workbook, partitions its data rows by the
// distinct values of a designated key column, renders one workbook per
// distinct value, and bundles the results into a single zip archive:
//
//	ReadDataset → DistinctKeys → Partition → (per group: SafeFileName →
//	WriteGroup → ArchiveBuilder.Add) → reconcile → archive bytes
//
// Split runs the whole chain synchronously for one invocation. Service
// wraps Split for asynchronous use: it assigns run IDs, bounds concurrency
// with RunLimiter, fans out progress events to subscribers, and optionally
// records finished runs through a RunRecorder.
//
// # Events
//
// The pipeline reports progress through an EventFunc callback, one
// structured Event at a time: after the file is read, after key discovery,
// after partitioning, once per serialized group, and a final
// reconciliation message. Accumulation and rendering are the caller's
// concern; the pipeline holds no log state of its own.
//
// # Errors
//
// Three error kinds abort a run: ErrInvalidFormat (the input is not a
// parseable workbook), *ColumnNotFoundError (the key column is absent,
// detected before any partitioning), and *SerializationError (a group
// could not be rendered, tagged with the group's key). There is no retry
// and no partial archive. A row-count shortfall at reconciliation is NOT
// an error; it is logged as a warning and attributed to rows whose key
// cell was empty.
//
// # Ownership
//
// A run exclusively owns its dataset, intermediate buffers, and growing
// archive. Concurrent uploads each get an independent run; nothing mutable
// is shared between runs.
package core
