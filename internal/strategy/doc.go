// Package strategy models resolution strategies as a closed set of types.
//
// [Strategy] is a sealed interface: only the six variants in this package
// implement it, and every switch over them is exhaustive. Strategies arrive
// from callers as a [Descriptor] (JSON or YAML) and are converted with
// [Descriptor.Strategy], which rejects unknown names.
//
// Merge evaluation lives here too. [Evaluate] applies one [MergeRule] to a
// conflict and never fails: any rule that cannot apply falls back to the
// server value.
package strategy
