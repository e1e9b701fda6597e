// Package search provides semantic search over persisted snippet documents.
package search
