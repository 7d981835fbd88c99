package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/cipherkit/internal/breaker"
	"github.com/RowanDark/cipherkit/internal/cipher"
	"github.com/RowanDark/cipherkit/internal/history"
)

func runBreak(args []string) int {
	fs := flag.NewFlagSet("break", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cipherName := fs.String("cipher", "", "cipher to attack: vigenere, caesar or xor")
	maxLen := fs.Int("max", 0, "longest Vigenère key to try (default from config)")
	workers := fs.Int("workers", 0, "parallel search workers (default from config)")
	markers := fs.String("markers", "", "comma-separated marker words for scoring (default from config)")
	dictionary := fs.String("dictionary", "", "comma-separated XOR dictionary keys (default from config)")
	twoByte := fs.Bool("two-byte", false, "XOR: also try every 2-byte key")
	hexInput := fs.Bool("hex", false, "input is hex-encoded ciphertext")
	method := fs.String("method", "fitness", "caesar: fitness or frequency")
	candidates := fs.Bool("candidates", false, "caesar: print all 26 decodings")
	timeout := fs.Duration("timeout", 0, "abort the search after this long")
	historyPath := fs.String("history", "", "history database (default from config)")
	noHistory := fs.Bool("no-history", false, "do not record the result")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	in := fs.String("in", "", "ciphertext (default: stdin)")
	file := fs.String("file", "", "read ciphertext from file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	name := strings.ToLower(strings.TrimSpace(*cipherName))
	if name == "" {
		fmt.Fprintln(stderr, "--cipher is required")
		return 2
	}

	input, err := readInput(*in, *file)
	if err != nil {
		fmt.Fprintf(stderr, "break: %v\n", err)
		return 1
	}
	if *hexInput {
		if input, err = cipher.Execute(context.Background(), "hex_decode", input, nil); err != nil {
			fmt.Fprintf(stderr, "break: %v\n", err)
			return 1
		}
	}

	if name == breaker.CipherCaesar && (*candidates || *method == "frequency") {
		return printCaesar(string(input), *candidates)
	}
	if name == breaker.CipherCaesar && *method != "fitness" {
		fmt.Fprintf(stderr, "unknown method %q\n", *method)
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	req := breaker.Request{
		Cipher:       name,
		Ciphertext:   input,
		MaxKeyLength: cfg.Breaker.MaxKeyLength,
		Workers:      cfg.Breaker.Workers,
		Markers:      cfg.Breaker.Markers,
		Dictionary:   cfg.XOR.Dictionary,
		TwoByte:      *twoByte,
	}
	if *maxLen != 0 {
		req.MaxKeyLength = *maxLen
	}
	if *workers != 0 {
		req.Workers = *workers
	}
	if *markers != "" {
		req.Markers = strings.Split(*markers, ",")
	}
	if *dictionary != "" {
		req.Dictionary = strings.Split(*dictionary, ",")
	}

	audit, err := openAudit(cfg, "breaker")
	if err != nil {
		fmt.Fprintf(stderr, "open audit log: %v\n", err)
		return 1
	}
	defer audit.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	rec, err := breaker.Recover(ctx, req, nil)
	if err != nil {
		_ = audit.SearchAborted(cliSubject, name, err)
		fmt.Fprintf(stderr, "break: %v\n", err)
		return 1
	}
	_ = audit.KeyRecovered(cliSubject, rec.Cipher, len(rec.Key), rec.Score, rec.Candidates)

	var recordID string
	path := cfg.HistoryPath
	if *historyPath != "" {
		path = *historyPath
	}
	if path != "" && !*noHistory {
		id, err := saveRecovery(path, rec, req)
		if err != nil {
			fmt.Fprintf(stderr, "warning: result not saved: %v\n", err)
		} else {
			recordID = id
		}
	}

	if *asJSON {
		out := struct {
			breaker.Recovery
			Plaintext string `json:"plaintext"`
			RecordID  string `json:"record_id,omitempty"`
		}{rec, string(rec.Plaintext), recordID}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "encode result: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(stdout, "key: %s\n", rec.Key)
	fmt.Fprintf(stdout, "score: %g\n", rec.Score)
	fmt.Fprintf(stdout, "candidates: %d\n", rec.Candidates)
	fmt.Fprintf(stdout, "elapsed: %s\n", rec.Duration.Round(time.Millisecond))
	if recordID != "" {
		fmt.Fprintf(stdout, "record: %s\n", recordID)
	}
	fmt.Fprintf(stdout, "plaintext: %s\n", printable(rec.Plaintext))
	return 0
}

func saveRecovery(path string, rec breaker.Recovery, req breaker.Request) (string, error) {
	store, err := history.New(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	hr := &history.Record{
		Kind:       rec.Cipher,
		Subject:    cliSubject,
		Key:        rec.Key,
		Plaintext:  string(rec.Plaintext),
		Score:      rec.Score,
		Candidates: rec.Candidates,
		Duration:   rec.Duration,
	}
	if rec.Cipher == breaker.CipherVigenere {
		hr.MaxKeyLength = req.MaxKeyLength
	}
	hr.SetCiphertext(req.Ciphertext)
	if err := store.Save(context.Background(), hr); err != nil {
		return "", err
	}
	return hr.ID, nil
}

func printCaesar(ciphertext string, all bool) int {
	estimate := breaker.EstimateCaesarShift(ciphertext)
	cands := breaker.CaesarCandidates(ciphertext)
	if !all {
		fmt.Fprintf(stdout, "key: %d\n", estimate)
		fmt.Fprintf(stdout, "plaintext: %s\n", cands[estimate].Text)
		return 0
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHIFT\tTEXT")
	for _, c := range cands {
		marker := ""
		if c.Shift == estimate {
			marker = " *"
		}
		fmt.Fprintf(w, "%d%s\t%s\n", c.Shift, marker, c.Text)
	}
	return flushTable(w)
}
