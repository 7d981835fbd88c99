package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"strings"

	"github.com/RowanDark/cipherkit/internal/feistel"
	"github.com/RowanDark/cipherkit/internal/keygen"
	"github.com/RowanDark/cipherkit/internal/logging"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	kind := fs.String("type", "password", "password, bytes, key, iv, salt, feistel, derive, hash, check or validate")
	length := fs.Int("length", 0, "password length, or byte count for bytes/iv/salt")
	bits := fs.Int("bits", 256, "key size in bits for key and derive")
	noUpper := fs.Bool("no-upper", false, "password: leave out upper-case letters")
	noLower := fs.Bool("no-lower", false, "password: leave out lower-case letters")
	noDigits := fs.Bool("no-digits", false, "password: leave out digits")
	noSymbols := fs.Bool("no-symbols", false, "password: leave out symbols")
	password := fs.String("password", "", "password or passphrase for derive, hash, check and validate")
	saltHex := fs.String("salt", "", "derive: hex salt (default: 16 random bytes)")
	hash := fs.String("hash", "", "check: bcrypt hash to compare against")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	gen := keygen.New()
	var material []byte
	var err error

	switch strings.ToLower(*kind) {
	case "password":
		n := *length
		if n == 0 {
			n = 16
		}
		opts := keygen.PasswordOptions{Upper: !*noUpper, Lower: !*noLower, Digits: !*noDigits, Symbols: !*noSymbols}
		pw, err := gen.Password(n, opts)
		if err != nil {
			fmt.Fprintf(stderr, "keygen: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, pw)
		auditKeygen("password", n*8)
		return 0
	case "bytes":
		material, err = gen.Bytes(orDefault(*length, 32))
	case "key":
		material, err = gen.Key(*bits)
	case "iv":
		material, err = gen.IV(orDefault(*length, 16))
	case "salt":
		material, err = gen.Salt(orDefault(*length, 16))
	case "feistel":
		material, err = gen.FeistelKey()
		if err == nil {
			block, berr := feistel.BlockFromBytes(material)
			if berr != nil {
				err = berr
				break
			}
			fmt.Fprintf(stdout, "key_hex: 0x%016x\n", uint64(block))
			keygen.Wipe(material)
			auditKeygen("feistel", 64)
			return 0
		}
	case "derive":
		return runDerive(gen, *password, *saltHex, *bits)
	case "hash":
		if *password == "" {
			fmt.Fprintln(stderr, "--password is required")
			return 2
		}
		h, err := keygen.HashPassword(*password)
		if err != nil {
			fmt.Fprintf(stderr, "keygen: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, h)
		return 0
	case "check":
		if *password == "" || *hash == "" {
			fmt.Fprintln(stderr, "--password and --hash are required")
			return 2
		}
		if !keygen.CheckPassword(*password, *hash) {
			fmt.Fprintln(stdout, "mismatch")
			return 1
		}
		fmt.Fprintln(stdout, "ok")
		return 0
	case "validate":
		if err := keygen.ValidatePassword(*password); err != nil {
			fmt.Fprintln(stdout, err)
			return 1
		}
		fmt.Fprintln(stdout, "ok")
		return 0
	default:
		fmt.Fprintf(stderr, "unknown key type: %s\n", *kind)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "keygen: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, hex.EncodeToString(material))
	auditKeygen(strings.ToLower(*kind), len(material)*8)
	keygen.Wipe(material)
	return 0
}

func runDerive(gen *keygen.Generator, passphrase, saltHex string, bits int) int {
	if passphrase == "" {
		fmt.Fprintln(stderr, "--password is required")
		return 2
	}
	var salt []byte
	var err error
	if saltHex != "" {
		salt, err = hex.DecodeString(strings.TrimPrefix(saltHex, "0x"))
	} else {
		salt, err = gen.Salt(16)
	}
	if err != nil {
		fmt.Fprintf(stderr, "keygen: salt: %v\n", err)
		return 1
	}
	key, err := keygen.DeriveKey([]byte(passphrase), salt, bits)
	if err != nil {
		fmt.Fprintf(stderr, "keygen: %v\n", err)
		return 1
	}
	defer keygen.Wipe(key)
	fmt.Fprintf(stdout, "salt: %s\n", hex.EncodeToString(salt))
	fmt.Fprintf(stdout, "key: %s\n", hex.EncodeToString(key))
	auditKeygen("derive", bits)
	return 0
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func auditKeygen(kind string, bits int) {
	cfg, err := loadConfig()
	if err != nil {
		return
	}
	audit, err := openAudit(cfg, "keygen")
	if err != nil {
		return
	}
	defer audit.Close()
	_ = audit.Emit(logging.AuditEvent{
		Subject:   cliSubject,
		EventType: logging.EventKeyGenerated,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"type": kind, "bits": bits},
	})
}
