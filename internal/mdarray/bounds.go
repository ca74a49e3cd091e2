//go:build bounds

package mdarray

const boundsChecks = true
