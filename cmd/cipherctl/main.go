package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const cliBanner = "cipherkit CLI (cipherctl)"

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var configPath = flag.String("config", "", "Load configuration from this YAML file instead of the default locations")

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintln(out, cliBanner)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Usage: cipherctl [-config file] <command> [flags]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  ops                      list operations")
		fmt.Fprintln(out, "  encode -op NAME ...      run operations forwards")
		fmt.Fprintln(out, "  decode -op NAME ...      run the inverse operations in reverse order")
		fmt.Fprintln(out, "  run -recipe NAME         run a stored recipe")
		fmt.Fprintln(out, "  recipes list|save|delete manage recipes")
		fmt.Fprintln(out, "  detect                   guess the encoding or cipher of the input")
		fmt.Fprintln(out, "  break -cipher NAME       recover a key (vigenere, caesar, xor)")
		fmt.Fprintln(out, "  keygen -type TYPE        generate passwords, keys, IVs and salts")
		fmt.Fprintln(out, "  history list|show|delete inspect recovered keys")
		fmt.Fprintln(out, "  serve                    run the gRPC toolkit service")
		fmt.Fprintln(out, "  token -subject NAME      issue a bearer token for the service")
		fmt.Fprintln(out, "  remote METHOD            call a running service")
		fmt.Fprintln(out, "  config print             show the resolved configuration")
		fmt.Fprintln(out)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	os.Exit(dispatch(flag.Args()))
}

func dispatch(args []string) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	switch args[0] {
	case "ops":
		return runOps(args[1:])
	case "encode":
		return runEncode(args[1:])
	case "decode":
		return runDecode(args[1:])
	case "run":
		return runRecipe(args[1:])
	case "recipes":
		return runRecipes(args[1:])
	case "detect":
		return runDetect(args[1:])
	case "break":
		return runBreak(args[1:])
	case "keygen":
		return runKeygen(args[1:])
	case "history":
		return runHistory(args[1:])
	case "serve":
		return runServe(args[1:])
	case "token":
		return runToken(args[1:])
	case "remote":
		return runRemote(args[1:])
	case "config":
		return runConfig(args[1:])
	case "help", "-h", "--help":
		flag.Usage()
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		return 2
	}
}
