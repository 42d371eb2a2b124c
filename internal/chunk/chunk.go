// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ragkit Contributors

// Package chunk splits document text into overlapping chunks suitable for
// embedding. Paragraph boundaries are preferred; paragraphs longer than the
// target size fall back to sentence boundaries. Consecutive chunks share an
// overlap aligned to a sentence start so retrieval keeps context.
package chunk

import (
	"regexp"
	"strings"
)

// Default chunking parameters, used by DefaultOptions and the
// configuration layer.
const (
	DefaultSize      = 500
	DefaultOverlap   = 100
	DefaultMinLength = 50
)

// Options controls chunking. Sizes are in bytes. Zero values are honored:
// Overlap 0 disables the carried overlap and MinLength 0 keeps every chunk.
// Use DefaultOptions for the standard parameters.
type Options struct {
	Size      int // target chunk size; DefaultSize when <= 0
	Overlap   int // overlap carried between consecutive chunks
	MinLength int // chunks shorter than this are dropped
}

// DefaultOptions returns the standard chunking parameters.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Overlap: DefaultOverlap, MinLength: DefaultMinLength}
}

// normalize clamps values that cannot work: a non-positive size, a negative
// minimum length, or an overlap at or above the chunk size. It never
// substitutes a default for an explicit zero.
func (o Options) normalize() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Overlap < 0 || o.Overlap >= o.Size {
		o.Overlap = 0
	}
	if o.MinLength < 0 {
		o.MinLength = 0
	}
	return o
}

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// Split chunks text according to opts. Empty input yields no chunks.
func Split(text string, opts Options) []string {
	opts = opts.normalize()

	var chunks []string
	var current string

	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		switch {
		case len(current)+len(paragraph)+2 <= opts.Size:
			if current != "" {
				current += "\n\n" + paragraph
			} else {
				current = paragraph
			}

		case current != "":
			chunks = append(chunks, current)
			if tail := overlapText(current, opts.Overlap); tail != "" {
				current = tail + "\n\n" + paragraph
			} else {
				current = paragraph
			}

		case len(paragraph) > opts.Size:
			sentenceChunks := splitLongParagraph(paragraph, opts)
			if len(sentenceChunks) > 0 {
				chunks = append(chunks, sentenceChunks[:len(sentenceChunks)-1]...)
				current = sentenceChunks[len(sentenceChunks)-1]
			}

		default:
			current = paragraph
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	filtered := chunks[:0]
	for _, c := range chunks {
		if len(c) >= opts.MinLength {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// overlapText takes the trailing overlapSize bytes of text, preferring to
// start at a sentence boundary inside that window.
func overlapText(text string, overlapSize int) string {
	if overlapSize == 0 {
		return ""
	}
	if len(text) <= overlapSize {
		return text
	}

	candidate := text[len(text)-overlapSize:]

	best := 0
	for _, delim := range []string{". ", "! ", "? ", "\n"} {
		if pos := strings.Index(candidate, delim); pos != -1 && pos+len(delim) > best {
			best = pos + len(delim)
		}
	}
	return strings.TrimSpace(candidate[best:])
}

// splitLongParagraph breaks a paragraph into chunks along sentence
// boundaries, carrying the configured overlap between them.
func splitLongParagraph(paragraph string, opts Options) []string {
	sentences := splitSentences(paragraph)

	var chunks []string
	var current string

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(current)+len(sentence)+1 <= opts.Size {
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
			continue
		}

		if current != "" {
			chunks = append(chunks, current)
			if tail := overlapText(current, opts.Overlap); tail != "" {
				current = tail + " " + sentence
			} else {
				current = sentence
			}
		} else {
			// A single sentence above the target size is kept whole.
			current = sentence
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitSentences splits on sentence-ending punctuation, keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	bounds := sentenceEnd.FindAllStringIndex(text, -1)
	if len(bounds) == 0 {
		return []string{text}
	}

	var sentences []string
	start := 0
	for _, b := range bounds {
		sentences = append(sentences, text[start:b[1]])
		start = b[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}
