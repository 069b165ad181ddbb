// Package pipeline drives the annotation of a document collection: it
// pages documents out of a source, routes oversized texts through
// chunking, extraction, remapping and deduplication, and persists the
// merged results through the annotation cache, checkpointing as it goes
// so an interrupted run can resume without reprocessing.
package pipeline
