// Package http provides HTTP handlers and middleware for the meetings dashboard.
//
// The router exposes the following endpoints:
//   - GET /auth/sign-in, POST /auth/sign-in: sign-in page and form. A JSON body
//     {"email","password"} is answered with {"token","expires_at","user"}; the
//     token is also set as the `session_token` cookie and `X-Session-Token` header.
//   - GET /auth/sign-up, POST /auth/sign-up: account registration.
//   - POST /auth/sign-out: revokes the current session and redirects to sign-in.
//   - GET /dashboard?page=N: one page of meetings, newest first.
//   - GET /dashboard/meetings/{id}: the same page with the detail drawer open.
//   - GET /dashboard/meetings/new, POST /dashboard/meetings,
//     POST /dashboard/meetings/reset: the create modal.
//   - GET /api/meetings?page=&limit=, GET /api/meetings/{id}, POST /api/meetings:
//     JSON access to the caller's meetings using the `meetingDTO` payload
//     defined in api_handler.go.
//   - POST /api/session/refresh, PUT /api/me/password: token rotation and
//     password change.
//   - GET /events: WebSocket stream of the caller's events as JSON.
//   - GET /healthz: database liveness.
//
// SessionGuard resolves the session cookie or bearer token of every request
// into the caller's dashboard workspace and redirects according to the route
// policy.
package http
