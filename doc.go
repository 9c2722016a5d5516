// Package auth implements the account flows for the Bienes Raices site:
// registration, email confirmation, password recovery, and cookie based
// JWT sessions.
//
// Account lifecycle:
//   - Users are created unconfirmed with a single-use confirmation token.
//     Visiting the emailed link consumes the token and flips Confirmado,
//     after which login is allowed.
//   - Password recovery reuses the same nullable token column: requesting
//     a reset issues a fresh token (replacing any pending one), and
//     finalizing the reset consumes it atomically together with the new
//     password hash.
//
// Command handlers:
//   - Each mutation is a handler with an Execute(ctx, Message) entry point
//     and an optional OnResponse callback. Handlers run their writes inside
//     a single transaction via RepositoryManager.RunInTx.
//
// HTTP surface:
//   - RegisterAuthRoutes mounts the server-rendered flows on a go-router
//     instance. Sessions travel in an HTTP-only `_token` cookie holding a
//     signed JWT; ProtectedRoute validates it and exposes the session via
//     the request context.
package auth
