// Package incbench contains the core types of incbench, a benchmark harness for chained
// read → transform → write pipelines over large objects held in a remote object store.
// This root package defines the values and collaborator interfaces shared by the storage,
// instrumentation and pipeline packages, and is a good overview of incbench's key concepts.
package incbench
