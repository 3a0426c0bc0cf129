// Package auth stores the bearer credential obtained from the backend's
// login endpoint.
//
// The credential is the only state glint keeps on disk. [Store] writes it
// to a JSON file (default ~/.glint/credentials.json, mode 0600) using
// atomic writes (temp file + rename) with file locking via
// [github.com/gofrs/flock], so concurrent glint processes never observe a
// torn file.
//
// [Store.Token] adapts the store to the API client's TokenSource: it
// yields the saved token, or the empty string when logged out, letting
// unauthenticated endpoints (login, health) proceed without a header.
package auth
