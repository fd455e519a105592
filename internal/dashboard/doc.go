// Package dashboard holds the per-session view models behind the meetings
// dashboard: the record store client, the session provider, the paginated
// list, the detail selection, and the create form. A Workspace bundles one of
// each for a signed-in browser session and a Registry keeps recent workspaces
// in a bounded LRU cache.
//
// View models guard their state with a mutex that is never held across a
// store call, so a slow fetch only suspends the request that issued it.
package dashboard
