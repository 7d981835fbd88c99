package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/RowanDark/cipherkit/internal/cipher"
)

const cliSubject = "cli"

func runOps(args []string) int {
	fs := flag.NewFlagSet("ops", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("type", "", "only list operations of this type (encode, decode, encrypt, decrypt, transform, analyze)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ops := cipher.ListOperations()
	if *kind != "" {
		ops = cipher.ListOperationsByType(cipher.OperationType(strings.ToLower(*kind)))
		if len(ops) == 0 {
			fmt.Fprintf(stderr, "no operations of type %q\n", *kind)
			return 1
		}
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tINVERSE\tDESCRIPTION")
	for _, op := range ops {
		inverse := "-"
		if inv, ok := op.Reverse(); ok {
			inverse = inv.Name()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", op.Name(), op.Type(), inverse, op.Description())
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(stderr, "write: %v\n", err)
		return 1
	}
	return 0
}

// resolveOperation maps a short name to a registered operation: forwards
// tries name_encode, name_encrypt and name; backwards tries name_decode,
// name_decrypt and the inverse of name.
func resolveOperation(name string, forward bool) (cipher.Operation, error) {
	name = strings.TrimSpace(name)
	suffixes := []string{"_decode", "_decrypt"}
	if forward {
		suffixes = []string{"_encode", "_encrypt"}
	}
	for _, suffix := range suffixes {
		if op, ok := cipher.GetOperation(name + suffix); ok {
			return op, nil
		}
	}
	op, ok := cipher.GetOperation(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cipher.ErrUnknownOperation, name)
	}
	if forward {
		return op, nil
	}
	inv, ok := op.Reverse()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, cipher.ErrNotReversible)
	}
	return inv, nil
}

func runEncode(args []string) int {
	return runTransform("encode", args, true)
}

func runDecode(args []string) int {
	return runTransform("decode", args, false)
}

func runTransform(command string, args []string, forward bool) int {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var ops stringList
	var params paramFlags
	fs.Var(&ops, "op", "operation or short name (base64, hex, feistel, vigenere, ...); repeat to chain")
	fs.Var(&params, "p", "parameter key=value, or op.key=value for one step; repeatable")
	in := fs.String("in", "", "input text (default: stdin)")
	file := fs.String("file", "", "read input from file")
	out := fs.String("out", "", "write output to file")
	raw := fs.Bool("raw", false, "write output bytes unmodified")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(ops) == 0 {
		fmt.Fprintln(stderr, "at least one -op is required")
		return 2
	}

	names := []string(ops)
	if !forward {
		// decode undoes an encode chain given in the same order
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	pipeline := &cipher.Pipeline{}
	for _, name := range names {
		op, err := resolveOperation(name, forward)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", command, err)
			return 2
		}
		pipeline.Steps = append(pipeline.Steps, cipher.Step{
			Name:   op.Name(),
			Params: params.forStep(name, op.Name()),
		})
	}

	input, err := readInput(*in, *file)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	audit, err := openAudit(cfg, "cipherctl")
	if err != nil {
		fmt.Fprintf(stderr, "open audit log: %v\n", err)
		return 1
	}
	defer audit.Close()

	output, err := pipeline.Execute(context.Background(), input)
	_ = audit.Operation(cliSubject, stepNames(pipeline), len(input), len(output), err)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
		return 1
	}
	if err := writeOutput(output, *out, *raw); err != nil {
		fmt.Fprintf(stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func stepNames(p *cipher.Pipeline) string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}
