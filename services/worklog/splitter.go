// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package worklog

import "strings"

// Chat transports cap a single message around 4096 characters; the
// splitter stays 100 under to leave room for transport framing.
const (
	maxMessageLength = 4096
	splitMargin      = 100
)

// SplitMessage breaks a long response into transport-sized chunks.
//
// Description:
//
//	Splits on line boundaries first, falling back to word boundaries
//	for a single oversized line, and to raw character chunks for an
//	unbreakable run. Empty chunks are dropped. A message already
//	under the cap comes back as a single chunk.
func SplitMessage(text string) []string {
	if len(text) <= maxMessageLength {
		if strings.TrimSpace(text) == "" {
			return []string{}
		}
		return []string{text}
	}

	limit := maxMessageLength - splitMargin
	parts := []string{}
	current := ""
	for _, line := range strings.Split(text, "\n") {
		candidate := line
		if current != "" {
			candidate = current + "\n" + line
		}
		if len(candidate) <= limit {
			current = candidate
			continue
		}
		if current != "" {
			parts = append(parts, current)
			current = ""
		}
		if len(line) <= limit {
			current = line
			continue
		}
		chunks := splitLongLine(line, limit)
		if len(chunks) > 0 {
			// Keep the tail open so following short lines can join it.
			current = chunks[len(chunks)-1]
			parts = append(parts, chunks[:len(chunks)-1]...)
		}
	}
	if current != "" {
		parts = append(parts, current)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitLongLine breaks one oversized line on word boundaries, then on
// raw characters when a single word exceeds the limit.
func splitLongLine(line string, limit int) []string {
	chunks := []string{}
	current := ""
	for _, word := range strings.Split(line, " ") {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len(candidate) <= limit {
			current = candidate
			continue
		}
		if current != "" {
			chunks = append(chunks, current)
			current = word
			continue
		}
		for len(word) > limit {
			chunks = append(chunks, word[:limit])
			word = word[limit:]
		}
		current = word
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// TruncateMessage cuts a response to one transport message, preferring
// a line boundary near the end and appending a truncation notice.
func TruncateMessage(text string) string {
	limit := maxMessageLength - splitMargin
	if len(text) <= limit {
		return text
	}
	const notice = "\n\n[truncated: narrow the query for full detail]"
	cut := text[:limit-len(notice)]
	if idx := strings.LastIndex(cut, "\n"); idx > limit*8/10 {
		cut = cut[:idx]
	}
	return cut + notice
}
