// Package pipeline runs the tree-building stages in order:
//
//	align -> convert -> sanitize -> inject -> infer -> visualize
//
// Each stage consumes the file the previous one produced inside the run's
// directory (see runctx). The first failure stops the run; nothing is retried
// and partial artifacts are left in place.
//
// External programs are reached only through toolrun.Runner, and progress is
// reported through Observer. Both keep the pipeline testable without MUSCLE
// or MrBayes installed.
package pipeline
