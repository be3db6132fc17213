// Package nexus reads and writes the small subset of the Nexus format the
// pipeline exchanges with MrBayes: a DNA data block going in, and the sampled
// trees (`begin trees;`) coming out.
package nexus
