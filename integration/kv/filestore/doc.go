// Package filestore provides a file-backed implementation of the
// kvstore.Substrate interface for durable plaintext storage.
//
// All keys live in a single JSON document owned by the calling user
// (mode 0600). Writes go through a temp file and an atomic rename, so an
// interrupted write never corrupts the previous document.
//
// # Usage
//
//	store, err := filestore.New(filepath.Join(dataDir, "preferences.json"))
//	if err != nil {
//		return err
//	}
//
//	if err := store.Set(ctx, "selected_language", `"es"`); err != nil {
//		return err
//	}
//
//	v, err := store.Get(ctx, "selected_language")
//	if errors.Is(err, kvstore.ErrNotFound) {
//		// nothing stored yet
//	}
//
// The store is safe for concurrent use within one process but performs no
// cross-process locking. Use securestore for values that must not rest on
// disk in the clear.
package filestore
