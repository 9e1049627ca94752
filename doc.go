// Package auth implements YapYap's stateless email verification and session
// issuance.
//
// Registration:
//   - SignupHandler validates the request, hashes the password and seals the
//     pending registration inside a signed, short lived verification token.
//     Nothing is written to storage until the link is redeemed.
//   - VerifyEmailHandler redeems the token inside a transaction. The unique
//     email constraint decides the winner when the same link is clicked twice.
//
// Sessions:
//   - CredentialAuthenticator checks email and password against verified
//     accounts only. Unknown emails and wrong passwords fail identically.
//   - SessionManager carries the session as a signed HTTP only cookie. There
//     is no server side session state, so logout only clears the cookie.
//   - AuthGate resolves the cookie on protected routes and exposes the account
//     through the request context.
//
// Activity sinks:
//   - ActivitySink receives audit events for signup, verification, login and
//     avatar changes. Sinks run best effort: errors are logged and never fail
//     the request.
package auth
