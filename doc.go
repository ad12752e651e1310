// Package auth provides the local identity model (users and provider
// linkages), session token issuance and direct username/password flows.
//
// Session tokens:
//   - TokenService mints an access/refresh pair per login. Both tokens carry
//     user_id, email and is_admin read from the user row at mint time, and
//     share the same iat. Only exp, jti and token_type differ.
//   - Refresher rotates refresh tokens and revokes them on logout through a
//     Denylist (in memory, or redis via the repository package).
//
// Identity store:
//   - UserStore is the narrow contract used here. The bun implementation lives
//     in the repository package and also serves the federated login flow in
//     the social package.
//
// HTTP:
//   - AuthController serves sign up, login, refresh, logout and the profile
//     routes. RequireAdmin guards the user directory routes with the is_admin
//     claim.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter for sign up, password login
//     and federated outcomes. Sinks run best-effort (errors are logged).
package auth
