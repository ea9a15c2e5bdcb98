// Package securestore provides an encrypted file-backed implementation of
// the kvstore.Substrate interface for values that must not rest on disk in
// the clear, such as session tokens.
//
// All keys live in a single JSON document sealed with XChaCha20-Poly1305
// under a caller-supplied 32-byte key. Every write seals the document with a
// fresh random nonce and replaces the file atomically, so an interrupted
// write never corrupts the previous document and identical documents never
// produce identical ciphertext.
//
// # Usage
//
//	key, err := securestore.GenerateKey() // or load from the platform keychain
//	if err != nil {
//		return err
//	}
//
//	store, err := securestore.New(filepath.Join(dataDir, "vault.bin"), key)
//	if err != nil {
//		return err
//	}
//
//	if err := store.Set(ctx, "auth_session", sessionJSON); err != nil {
//		return err
//	}
//
// A wrong key or a tampered file surfaces as ErrCorruptFile; the two cases
// are indistinguishable by construction of the AEAD.
package securestore
