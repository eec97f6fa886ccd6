package csv

import (
	"bufio"
	"bytes"
	"io"
)

// ScrubRule is a literal byte rewrite applied to the raw stream before it
// reaches the CSV reader. Typical use is repairing a known broken-quote
// sequence in a dataset, e.g.
//
//	From: ` "v likvidaci""`   To: ` (v likvidaci)"`
//
// Rules must not add or remove newlines or reported line numbers drift.
type ScrubRule struct {
	From []byte
	To   []byte
}

// Scrub wraps r with one streaming rewriter per rule, applied in order.
func Scrub(r io.Reader, rules []ScrubRule) io.Reader {
	for _, rule := range rules {
		if len(rule.From) == 0 || bytes.Equal(rule.From, rule.To) {
			continue
		}
		r = newStreamingRewriter(r, rule.From, rule.To)
	}
	return r
}

const rewriteChunk = 64 * 1024

// streamingRewriter replaces every occurrence of pat with repl without
// buffering the whole stream. Up to len(pat)-1 unreplaced input bytes at the
// end of each block are withheld as carry so matches spanning chunk
// boundaries are seen; replacement output is never scanned again.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	chunk []byte
	carry []byte
	out   bytes.Buffer
	err   error
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, rewriteChunk),
		pat:   pat,
		repl:  repl,
		chunk: make([]byte, rewriteChunk),
		carry: make([]byte, 0, len(pat)),
	}
}

// Read fills p from pending output, pulling and rewriting further chunks as
// needed. It never returns (0, nil).
func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for sr.out.Len() == 0 {
		if sr.err != nil {
			return 0, sr.err
		}
		sr.fill()
	}
	return sr.out.Read(p)
}

func (sr *streamingRewriter) fill() {
	n, err := sr.br.Read(sr.chunk)
	if n > 0 {
		block := make([]byte, 0, len(sr.carry)+n)
		block = append(block, sr.carry...)
		block = append(block, sr.chunk[:n]...)

		i := 0
		for {
			j := bytes.Index(block[i:], sr.pat)
			if j < 0 {
				break
			}
			sr.out.Write(block[i : i+j])
			sr.out.Write(sr.repl)
			i += j + len(sr.pat)
		}
		tail := max(i, len(block)-(len(sr.pat)-1))
		sr.out.Write(block[i:tail])
		sr.carry = append(sr.carry[:0], block[tail:]...)
	}
	if err != nil {
		if err == io.EOF {
			sr.out.Write(sr.carry)
			sr.carry = sr.carry[:0]
		}
		sr.err = err
	}
}
