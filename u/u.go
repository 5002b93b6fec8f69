package u

import (
	"fmt"
	"os"
	"strings"
)

func PanicIf(cond bool, args ...interface{}) {
	if !cond {
		return
	}
	s := "condition failed"
	if len(args) > 0 {
		s = fmt.Sprintf("%s", args[0])
		if len(args) > 1 {
			s = fmt.Sprintf(s, args[1:]...)
		}
	}
	panic(s)
}

// SplitNonEmpty splits s on delim, dropping empty tokens
// e.g. "some,stuff,," => ["some", "stuff"]
func SplitNonEmpty(s string, delim string) []string {
	parts := strings.Split(s, delim)
	res := parts[:0]
	for _, p := range parts {
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}

// JoinTrailing joins tokens with delim, ending with a delimiter
// e.g. ["some", "stuff"] => "some,stuff,"
// Round-trips through SplitNonEmpty.
func JoinTrailing(tokens []string, delim string) string {
	if len(tokens) == 0 {
		return ""
	}
	return strings.Join(tokens, delim) + delim
}

// EqualFoldAny returns true if s case-insensitively equals any of vals
func EqualFoldAny(s string, vals ...string) bool {
	for _, v := range vals {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// PathExists returns true if path exists
func PathExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}
