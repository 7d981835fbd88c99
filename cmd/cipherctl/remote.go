package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/RowanDark/cipherkit/internal/env"
	"github.com/RowanDark/cipherkit/internal/rpc"
)

var remoteMethods = map[string]string{
	"transform":       rpc.MethodTransform,
	"break":           rpc.MethodBreak,
	"ops":             rpc.MethodListOperations,
	"listoperations":  rpc.MethodListOperations,
	"list-operations": rpc.MethodListOperations,
}

func runRemote(args []string) int {
	fs := flag.NewFlagSet("remote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "service address (default from config)")
	token := fs.String("token", "", "bearer token (default CIPHERKIT_TOKEN, or one issued from auth_secret)")
	body := fs.String("json", "{}", "request body as JSON")
	var sets, raws stringList
	fs.Var(&sets, "set", "set a string field, path=value (repeatable)")
	fs.Var(&raws, "setraw", "set a raw JSON field, path=json (repeatable)")
	sel := fs.String("select", "", "print only this path of the response")
	timeout := fs.Duration("timeout", 30*time.Second, "call timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: cipherctl remote [flags] transform|break|ops")
		return 2
	}
	method, ok := remoteMethods[strings.ToLower(fs.Arg(0))]
	if !ok {
		fmt.Fprintf(stderr, "unknown method: %s\n", fs.Arg(0))
		return 2
	}

	request, err := buildRequest(*body, sets, raws)
	if err != nil {
		fmt.Fprintf(stderr, "request: %v\n", err)
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if *addr == "" {
		*addr = cfg.ServerAddr
	}
	bearer, err := resolveToken(*token, cfg.AuthSecret)
	if err != nil {
		fmt.Fprintf(stderr, "token: %v\n", err)
		return 1
	}

	client, err := rpc.Dial(*addr, bearer)
	if err != nil {
		fmt.Fprintf(stderr, "dial %s: %v\n", *addr, err)
		return 1
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	resp, err := client.Call(ctx, method, request)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", method, err)
		return 1
	}

	out, err := protojson.Marshal(resp)
	if err != nil {
		fmt.Fprintf(stderr, "encode response: %v\n", err)
		return 1
	}
	if *sel != "" {
		result := gjson.GetBytes(out, *sel)
		if !result.Exists() {
			fmt.Fprintf(stderr, "no %s in response\n", *sel)
			return 1
		}
		fmt.Fprintln(stdout, result.String())
		return 0
	}
	fmt.Fprint(stdout, gjson.GetBytes(out, "@pretty").Raw)
	return 0
}

// buildRequest applies -set and -setraw edits to the JSON body and converts
// the result to a Struct.
func buildRequest(body string, sets, raws []string) (*structpb.Struct, error) {
	data := []byte(strings.TrimSpace(body))
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("-json is not valid JSON")
	}

	var err error
	for _, kv := range sets {
		path, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("expected path=value, got %q", kv)
		}
		if data, err = sjson.SetBytes(data, path, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", path, err)
		}
	}
	for _, kv := range raws {
		path, value, ok := strings.Cut(kv, "=")
		if !ok || !gjson.Valid(value) {
			return nil, fmt.Errorf("expected path=json, got %q", kv)
		}
		if data, err = sjson.SetRawBytes(data, path, []byte(value)); err != nil {
			return nil, fmt.Errorf("set %s: %w", path, err)
		}
	}

	req := &structpb.Struct{}
	if err := protojson.Unmarshal(data, req); err != nil {
		return nil, err
	}
	return req, nil
}

func resolveToken(flagValue, secret string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if tok, ok := env.String("TOKEN"); ok {
		return tok, nil
	}
	if secret == "" {
		return "", errors.New("pass -token, set CIPHERKIT_TOKEN or configure auth_secret")
	}
	tok, _, err := rpc.IssueToken([]byte(secret), cliSubject, 5*time.Minute)
	return tok, err
}
