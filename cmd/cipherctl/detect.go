package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/RowanDark/cipherkit/internal/cipher"
)

func runDetect(args []string) int {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "input text (default: stdin)")
	file := fs.String("file", "", "read input from file")
	decode := fs.Bool("decode", false, "also decode with every detected encoding")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	input, err := readInput(*in, *file)
	if err != nil {
		fmt.Fprintf(stderr, "detect: %v\n", err)
		return 1
	}

	ctx := context.Background()
	fmt.Fprintf(stdout, "length: %d bytes, entropy: %.3f bits/byte, index of coincidence: %.4f\n",
		len(input), cipher.Entropy(input), cipher.IndexOfCoincidence(string(input)))

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	if *decode {
		results, err := cipher.DecodeAll(ctx, input)
		if err != nil {
			fmt.Fprintf(stderr, "detect: %v\n", err)
			return 1
		}
		if len(results) == 0 {
			fmt.Fprintln(stdout, "no encoding detected")
			return 0
		}
		fmt.Fprintln(w, "ENCODING\tCONFIDENCE\tOPERATION\tDECODED")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", r.Detection.Encoding, r.Detection.Confidence, r.Detection.Operation, printable(r.Decoded))
		}
		return flushTable(w)
	}

	results, err := cipher.NewSmartDetector().Detect(ctx, input)
	if err != nil {
		fmt.Fprintf(stderr, "detect: %v\n", err)
		return 1
	}
	if len(results) == 0 {
		fmt.Fprintln(stdout, "no encoding detected")
		return 0
	}
	fmt.Fprintln(w, "ENCODING\tCONFIDENCE\tOPERATION\tREASON")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", r.Encoding, r.Confidence, r.Operation, r.Reasoning)
	}
	return flushTable(w)
}

// printable quotes data that is not valid UTF-8 text.
func printable(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strconv.QuoteToASCII(string(data))
}

func flushTable(w *tabwriter.Writer) int {
	if err := w.Flush(); err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	return 0
}
