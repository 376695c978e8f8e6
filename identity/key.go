package identity

import (
	"path/filepath"
	"strings"

	"github.com/kbukum/speakerid/util"
)

// KeyFromFilename derives an identity key from an enrollment file name.
//
// The base name loses its final extension, is lowercased, has every
// parenthesized group removed ("alice(2).wav" and "Alice (1of2).m4a"
// both give "alice"), and has its whitespace collapsed and trimmed.
// An empty result means the file carries no usable key.
func KeyFromFilename(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return NormalizeKey(util.StripBracketed(base))
}

// NormalizeKey lowercases a key and collapses its whitespace.
func NormalizeKey(s string) string {
	return strings.ToLower(util.NormalizeSpace(s))
}

// Username returns the compact form of a key: "first,last" becomes
// "firstlast". Keys without a comma are returned unchanged.
func Username(key string) string {
	if !strings.Contains(key, ",") {
		return key
	}
	return strings.NewReplacer(",", "", " ", "").Replace(key)
}

// Matches reports whether an enrollment key belongs to a participant.
// Participants are given as "first,last" or as a username; a comma form
// on one side matches its username form on the other.
func Matches(key, participant string) bool {
	k, p := NormalizeKey(key), NormalizeKey(participant)
	if k == "" || p == "" {
		return false
	}
	if k == p {
		return true
	}
	kc, pc := strings.Contains(k, ","), strings.Contains(p, ",")
	switch {
	case !kc && pc:
		return k == Username(p)
	case kc && !pc:
		return Username(k) == p
	}
	return false
}

// MatchesAny reports whether key matches one of participants. An empty
// participant list matches every key.
func MatchesAny(key string, participants []string) bool {
	if len(participants) == 0 {
		return true
	}
	for _, p := range participants {
		if Matches(key, p) {
			return true
		}
	}
	return false
}
