// Package registry wires the full auth and preference stack into one
// explicit, shareable object.
//
// Every component dependency lives here: the event bus, the dual-substrate
// session reconciler, the session manager and token monitor, the auth
// client, the authenticated request pipeline, and the tiered preference
// service. Nothing in the stack reaches for package-level state; construct a
// Registry, pass it down, tear it down with Close.
//
// # Usage
//
//	plaintext, err := filestore.New(filepath.Join(dataDir, "app.json"))
//	if err != nil {
//		return err
//	}
//	encrypted, err := securestore.New(filepath.Join(dataDir, "vault.bin"), key)
//	if err != nil {
//		return err
//	}
//
//	reg, err := registry.New(registry.Config{
//		BaseURL: "https://project.supabase.co",
//		AnonKey: anonKey,
//	}, plaintext, encrypted)
//	if err != nil {
//		return err
//	}
//	defer reg.Close()
//
//	if err := reg.Load(ctx); err != nil {
//		return err
//	}
//
//	lang, _ := reg.Prefs.Language.Get(ctx, reg.Subject())
//
// NewFromEnv builds the same stack from CLIENTKIT_* environment variables.
//
// The Registry subscribes to its own bus and invalidates every preference
// tier on SignedIn and SignedOut, so a new identity never observes the
// previous identity's cached values.
package registry
