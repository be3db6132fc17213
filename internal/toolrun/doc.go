// Package toolrun runs external programs (the aligner, MrBayes) behind a
// small Runner interface so stages can be exercised with a fake in tests.
//
// The only contract to implement is Runner (Run). ExecRunner is the real
// implementation; RunnerFunc adapts plain functions.
package toolrun
