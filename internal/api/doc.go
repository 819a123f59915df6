// Package api is the HTTP client for the ElectroPhobia content API.
//
// # Overview
//
// Every network call goes through Client. It resolves endpoints against the API
// base, attaches the session's bearer token, unwraps the response envelope and
// normalizes failures into a small error taxonomy. Typed resource clients sit on
// top of it:
//
//	client, err := api.NewClient(api.Options{BaseURL: cfg.APIURL, Tokens: store})
//	blogs, err := client.Blogs.List(ctx, api.Filter{Category: "Tutorials"})
//	post, err := client.Blogs.GetBySlug(ctx, "getting-started-with-arduino")
//
// # Envelope
//
// The backend answers with {success, data, message} plus token and admin on
// login. An older contract returns the bare record or array; both are accepted
// and a bare body is taken as data. A missing success flag counts as success,
// success=false is an APIError even with a 2xx status.
//
// Fetch exposes the decoded Envelope wrapped in a Result for callers that want
// both branches spelled out:
//
//	api.Fetch[[]api.Product](ctx, client, api.Request{Endpoint: "/products"}).Match(
//		func(env api.Envelope[[]api.Product]) { ... },
//		func(err error) { ... },
//	)
//
// # Errors
//
//   - *TransportError: backend unreachable, timed out, or answered with something
//     other than JSON. The Content-Type is checked before any decoding.
//   - *APIError: non-2xx or success=false, carrying the server message or
//     "API request failed".
//   - 401: an *APIError that wraps ErrUnauthorized. Before returning, the client
//     clears the token store and runs Options.OnUnauthorized. Anonymous requests
//     (login) are exempt.
//
// # Retries and Timeouts
//
// Options.Timeout bounds each attempt. GETs that fail with a transport error or
// a 5xx are retried Options.Retries times with a constant delay (go-retry).
// Writes are never retried. Cancelling the context aborts the call and any
// pending retry.
package api
