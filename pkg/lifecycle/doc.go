// Package lifecycle runs before-shutdown hooks in reverse registration
// order, so components registered last (the ones that depend on earlier
// ones) stop first.
package lifecycle
