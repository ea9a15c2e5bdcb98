// Package sessionstore persists one logical session blob across two durable
// substrates that can each independently and silently lose data.
//
// Mobile platforms give us two imperfect homes for a serialized auth session:
// a plaintext application-scoped store the user can wipe, and a
// platform-encrypted store the OS occasionally wipes on its own (backup
// restores, security resets). The Reconciler writes to both, reads from a
// designated primary with fallback to the secondary, and repairs whichever
// side is missing data.
//
// Which substrate is primary is a deliberate configuration choice, not a
// default this package guesses: pass PrimaryPlaintext or PrimaryEncrypted to
// New. Plaintext-primary is the safer choice on platforms where the encrypted
// store is the one prone to silent clearing.
//
// Every operation is best-effort. A failure on one substrate never prevents
// the other substrate's operation, and no storage failure is ever fatal — the
// in-memory session stays authoritative for the rest of the process lifetime
// even when both writes fail.
//
//	rec, err := sessionstore.New(plainStore, secureStore, sessionstore.PrimaryPlaintext)
//	...
//	rec.Reconcile(ctx) // once, at startup, before the first Read
//	blob, ok := rec.Read(ctx)
package sessionstore
