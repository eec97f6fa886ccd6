package csv

import (
	"bytes"
	"io"
)

// lineOffsets passes reads through while recording the input offset at
// which each line starts, so a csv.ParseError position can be mapped back
// to a byte offset. Lines before the last record start are forgotten.
type lineOffsets struct {
	r      io.Reader
	n      int64
	base   int // line number of starts[0]
	starts []int64
}

func newLineOffsets(r io.Reader) *lineOffsets {
	return &lineOffsets{r: r, base: 1, starts: []int64{0}}
}

func (l *lineOffsets) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	b := p[:n]
	for off := 0; ; {
		i := bytes.IndexByte(b[off:], '\n')
		if i < 0 {
			break
		}
		off += i + 1
		l.starts = append(l.starts, l.n+int64(off))
	}
	l.n += int64(n)
	return n, err
}

// offset returns the input offset of the 1-based byte column col on line.
func (l *lineOffsets) offset(line, col int) (int64, bool) {
	i := line - l.base
	if i < 0 || i >= len(l.starts) || col < 1 {
		return 0, false
	}
	return l.starts[i] + int64(col-1), true
}

// forget drops the offsets of lines before line.
func (l *lineOffsets) forget(line int) {
	i := line - l.base
	if i <= 0 {
		return
	}
	if i > len(l.starts) {
		i = len(l.starts)
	}
	l.starts = l.starts[:copy(l.starts, l.starts[i:])]
	l.base += i
}
