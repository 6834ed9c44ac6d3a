// Package chunking splits document text into sentence-aligned fragments
// for embedding.
package chunking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultTargetSize is the fragment size, in runes, used when none is given.
const DefaultTargetSize = 900

// Segment splits text into fragments of whole sentences.
//
// Sentences end at '.', '!' or '?' followed by whitespace; the punctuation
// stays with its sentence. Sentences are joined with a single space until
// adding the next one would push the fragment past targetSize runes, at
// which point the fragment is emitted and a new one starts. A sentence
// longer than targetSize becomes a fragment on its own. The result never
// contains empty fragments and depends only on the arguments.
// targetSize <= 0 selects DefaultTargetSize.
func Segment(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	var (
		fragments []string
		buf       []string
		bufLen    int
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		if f := strings.TrimSpace(strings.Join(buf, " ")); f != "" {
			fragments = append(fragments, f)
		}
		buf = buf[:0]
		bufLen = 0
	}

	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if len(buf) > 0 && bufLen+1+n > targetSize {
			flush()
		}
		if len(buf) > 0 {
			bufLen++
		}
		buf = append(buf, s)
		bufLen += n
	}
	flush()

	return fragments
}

// Sentences splits text after every '.', '!' or '?' that is followed by
// whitespace. The whitespace run is consumed and each sentence is trimmed;
// blank sentences are dropped.
func Sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	// byte offsets of each rune, so slices come from the original string
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += utf8.RuneLen(r)
	}
	offsets[len(runes)] = pos

	emit := func(from, to int) {
		if s := strings.TrimSpace(text[offsets[from]:offsets[to]]); s != "" {
			out = append(out, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		emit(start, i+1)
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	emit(start, len(runes))

	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Segmenter applies Segment with a fixed target size.
type Segmenter struct {
	targetSize int
}

// NewSegmenter creates a Segmenter. targetSize <= 0 selects DefaultTargetSize.
func NewSegmenter(targetSize int) Segmenter {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return Segmenter{targetSize: targetSize}
}

// TargetSize returns the configured target size.
func (s Segmenter) TargetSize() int { return s.targetSize }

// Segment splits text into fragments.
func (s Segmenter) Segment(text string) []string {
	return Segment(text, s.targetSize)
}
