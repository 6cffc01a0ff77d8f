//go:build voxtreedebug

package voxtree

// sanityChecks makes the inserter verify its intermediate state after each
// stage.
const sanityChecks = true
