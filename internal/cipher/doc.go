// Package cipher is the operation layer of the toolkit.
//
// # Operations
//
// Every codec, cipher and analysis is a named Operation in a Registry. The
// package-level functions use the built-in registry:
//
//	out, err := cipher.Execute(ctx, "vigenere_encode", []byte("HOLA"), cipher.Params{"key": "CAT"})
//
// Reversible operations link to their inverse; the inverse takes the same
// parameters, so a pipeline can be undone step by step.
//
// # Pipelines
//
//	p := &cipher.Pipeline{Steps: []cipher.Step{
//	    {Name: "feistel_encrypt", Params: cipher.Params{"key": "CLAVE123"}},
//	    {Name: "base64_encode"},
//	}}
//	encoded, _ := p.Execute(ctx, []byte("HOLAMUND"))
//	back, _ := p.Reverse()
//	plain, _ := back.Execute(ctx, encoded)
//
// # Recipes
//
// A RecipeStore keeps named pipelines as YAML files identified by UUID.
// Built-in recipes (vigenere-base64, feistel-hex, xor-base64, caesar-binary)
// are always present and read-only. Parameters missing from a recipe, such as
// keys, are supplied when it runs:
//
//	store := cipher.NewRecipeStore(dir)
//	_ = store.Load()
//	r, _ := store.Get("vigenere-base64")
//	out, _ := r.Run(ctx, input, cipher.Params{"key": "CLAVE"})
//
// # Detection
//
// SmartDetector recognises Base64, hex and binary text and flags letter text
// that does not read as Spanish, pointing at caesar_break or vigenere_break
// depending on its index of coincidence.
//
// # Available Operations
//
// Codecs:
//   - base64_encode/decode, base64url_encode/decode
//   - hex_encode/decode, ascii_to_hex/hex_to_ascii
//   - binary_encode/decode
//
// Ciphers:
//   - caesar_encode/decode (shift)
//   - vigenere_encode/decode (key)
//   - xor (key or key_hex), its own inverse
//   - feistel_encrypt/decrypt (key of 8 characters, or key_hex)
//
// Text:
//   - text_fold (strip_punct)
//
// Analysis, one-way:
//   - vigenere_break (max_key_length, workers, markers)
//   - caesar_break (method, markers)
//   - xor_break (two_byte, dictionary, markers)
//
// Registries and recipe stores are safe for concurrent use.
package cipher
