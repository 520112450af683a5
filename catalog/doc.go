// Package catalog holds the product model and the catalog service.
//
// Listings are computed from a Store (count plus one page, stable on id) and
// served through a catalogcache.Cache. Writes go through Records, normally a
// repositorycache.CachedRepository over go-repository-bun, and flush the
// listing cache before the call returns.
//
// Errors are go-errors values categorized as validation, not found, conflict
// or internal, so transports can map them without inspecting messages.
package catalog
