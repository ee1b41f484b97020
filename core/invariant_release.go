//go:build !fcdebug

package core

const debugAssertions = false
