//go:build !bounds

package mdarray

const boundsChecks = false
