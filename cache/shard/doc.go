// Package shard implements the file-backed annotation store: one directory
// per (model, collection, field) namespace holding an index.json plus
// append-only JSONL batch files ("shards").
//
// The index maps each document ID to its shard and line position and is
// rewritten wholesale after every batch. Point lookups scan the shard
// forward to the recorded line, which is linear in shard size; the design
// trades lookup speed for simple, crash-safe appends, which is the right
// trade for batch annotation workloads.
package shard
