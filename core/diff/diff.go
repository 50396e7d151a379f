package diff

import (
	"iter"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Type is the polarity of a changed line.
type Type string

const (
	// Add marks a line present only in the remote text.
	Add Type = "add"
	// Rem marks a line present only in the local text.
	Rem Type = "rem"
)

// Valid reports whether t is a known polarity.
func (t Type) Valid() bool {
	return t == Add || t == Rem
}

// Op is one entry of a line edit script.
type Op struct {
	// Type is Add or Rem.
	Type Type `json:"type"`
	// Text is the literal line, without its terminating newline.
	Text string `json:"text"`
	// LocalLine anchors the op in the local sequence. For Rem it is the
	// index of the removed line; for Add it is the number of local lines
	// that precede the insertion point.
	LocalLine int `json:"local_line"`
	// RemoteLine is the index of the line in the remote sequence for Add,
	// or the number of remote lines preceding the removal for Rem.
	RemoteLine int `json:"remote_line"`
}

// maxDistinctLines bounds the rune alphabet used to encode lines.
// Surrogates are skipped because they do not survive a string round trip.
const maxDistinctLines = 0x10FFFF - (0xDFFF - 0xD800 + 1)

// Lines yields the edit script turning local into remote. Lines shared by
// both sides in matching order are not emitted. The script is computed when
// the sequence is first ranged over and again on every new range.
func Lines(local, remote []string) iter.Seq[Op] {
	return func(yield func(Op) bool) {
		a, b, ok := encode(local, remote)
		if !ok {
			replaceAll(local, remote, yield)
			return
		}

		dmp := diffmatchpatch.New()
		// Zero disables the deadline so the result is always minimal.
		dmp.DiffTimeout = 0

		li, ri := 0, 0
		for _, d := range dmp.DiffMainRunes(a, b, false) {
			n := len([]rune(d.Text))
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				li += n
				ri += n
			case diffmatchpatch.DiffDelete:
				for k := 0; k < n; k++ {
					if !yield(Op{Type: Rem, Text: local[li], LocalLine: li, RemoteLine: ri}) {
						return
					}
					li++
				}
			case diffmatchpatch.DiffInsert:
				for k := 0; k < n; k++ {
					if !yield(Op{Type: Add, Text: remote[ri], LocalLine: li, RemoteLine: ri}) {
						return
					}
					ri++
				}
			}
		}
	}
}

// Compute returns the full edit script as a slice.
func Compute(local, remote []string) []Op {
	var ops []Op
	for op := range Lines(local, remote) {
		ops = append(ops, op)
	}
	return ops
}

// Texts diffs two blobs line by line.
func Texts(local, remote string) []Op {
	return Compute(Split(local), Split(remote))
}

// Apply rebuilds a line sequence from local and a subset of its edit
// script. Rem ops drop the local line they point at; Add ops are inserted
// before the local line at their anchor, in the order given.
func Apply(local []string, ops []Op) []string {
	removed := make(map[int]bool)
	inserts := make(map[int][]string)
	for _, op := range ops {
		switch op.Type {
		case Rem:
			removed[op.LocalLine] = true
		case Add:
			anchor := min(max(op.LocalLine, 0), len(local))
			inserts[anchor] = append(inserts[anchor], op.Text)
		}
	}

	out := make([]string, 0, len(local)+len(ops))
	for i, line := range local {
		out = append(out, inserts[i]...)
		if !removed[i] {
			out = append(out, line)
		}
	}
	return append(out, inserts[len(local)]...)
}

// Split breaks text into lines on "\n". Join(Split(t)) == t for every t.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// Join is the inverse of Split.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}

// encode maps every distinct line to a unique rune so the character
// differ works on whole lines.
func encode(local, remote []string) ([]rune, []rune, bool) {
	index := make(map[string]rune)
	next := rune(0)
	convert := func(lines []string) ([]rune, bool) {
		out := make([]rune, len(lines))
		for i, line := range lines {
			r, ok := index[line]
			if !ok {
				if len(index) >= maxDistinctLines {
					return nil, false
				}
				if next == 0xD800 {
					next = 0xE000
				}
				r = next
				index[line] = r
				next++
			}
			out[i] = r
		}
		return out, true
	}

	a, ok := convert(local)
	if !ok {
		return nil, nil, false
	}
	b, ok := convert(remote)
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}

// replaceAll emits a script that removes every local line and adds every
// remote one. Used only when the inputs exceed the rune alphabet.
func replaceAll(local, remote []string, yield func(Op) bool) {
	for i, line := range local {
		if !yield(Op{Type: Rem, Text: line, LocalLine: i}) {
			return
		}
	}
	for i, line := range remote {
		if !yield(Op{Type: Add, Text: line, LocalLine: len(local), RemoteLine: i}) {
			return
		}
	}
}
