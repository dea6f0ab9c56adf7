// Package domain contains the core domain entities and types used by the
// scan engine. These types represent the business concepts (detections,
// decoded loyalty tokens, session lifecycle states) and are intentionally
// free of infrastructure concerns so they can be shared across packages.
package domain
