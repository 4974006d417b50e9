// Package regex compiles and caches various regex expressions.
package regex

import (
	"regexp"
	"sync"
)

// TrackPrefixCompile compiles regex for a two-digit "NN_" track prefix.
var TrackPrefixCompile = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\d{2}_(.+)$`)
})

// BracketTagCompile compiles regex for bracketed tags like "[dQw4w9WgXcQ]".
var BracketTagCompile = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`\[.*?\]`)
})

// ExtraSpacesCompile compiles regex for extra spaces
var ExtraSpacesCompile = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`\s+`)
})
