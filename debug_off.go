//go:build !voxtreedebug

package voxtree

const sanityChecks = false
