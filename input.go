package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// lineReader reads user input one line at a time. The prompt is only shown
// when input comes from a terminal, so piped input stays quiet.
type lineReader struct {
	sc          *bufio.Scanner
	out         io.Writer
	interactive bool
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	sc := bufio.NewScanner(in)
	// descriptions can be pasted in whole
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &lineReader{sc: sc, out: out, interactive: interactive}
}

// ReadLine returns io.EOF once the input is exhausted (Ctrl+D).
func (r *lineReader) ReadLine(prompt string) (string, error) {
	if r.interactive {
		fmt.Fprint(r.out, prompt)
	}
	return r.scan()
}

// Ask prints the question even when input is piped.
func (r *lineReader) Ask(question string) (string, error) {
	fmt.Fprint(r.out, question)
	return r.scan()
}

func (r *lineReader) scan() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		if r.interactive {
			fmt.Fprintln(r.out)
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}
