// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package collection

import (
	"errors"
	"fmt"
	"strings"
)

const (
	stepLen  = 4
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// maxStep is the largest position a node can take among its siblings.
var maxStep = func() int {
	n := 1
	for range stepLen {
		n *= len(alphabet)
	}
	return n - 1
}()

// ErrPathOverflow is returned when a parent has no free sibling positions left.
var ErrPathOverflow = errors.New("collection: too many children for path encoding")

// encodeStep renders position n as a fixed-width path step.
func encodeStep(n int) (string, error) {
	if n < 1 || n > maxStep {
		return "", fmt.Errorf("%w: position %d", ErrPathOverflow, n)
	}
	buf := make([]byte, stepLen)
	for i := stepLen - 1; i >= 0; i-- {
		buf[i] = alphabet[n%len(alphabet)]
		n /= len(alphabet)
	}
	return string(buf), nil
}

// decodeStep parses the last step of path.
func decodeStep(path string) (int, error) {
	if len(path) < stepLen || len(path)%stepLen != 0 {
		return 0, fmt.Errorf("collection: malformed path %q", path)
	}
	n := 0
	for _, r := range path[len(path)-stepLen:] {
		i := strings.IndexRune(alphabet, r)
		if i < 0 {
			return 0, fmt.Errorf("collection: malformed path %q", path)
		}
		n = n*len(alphabet) + i
	}
	return n, nil
}

// parentPath returns the path of the node's parent, or "" for a root node.
func parentPath(path string) string {
	if len(path) <= stepLen {
		return ""
	}
	return path[:len(path)-stepLen]
}

// ancestorPaths returns the paths of every ancestor of path, root first.
func ancestorPaths(path string) []string {
	var out []string
	for end := stepLen; end < len(path); end += stepLen {
		out = append(out, path[:end])
	}
	return out
}
