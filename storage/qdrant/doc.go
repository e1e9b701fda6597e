// Package qdrant provides a DocumentStore backed by a remote Qdrant
// vector database, for deployments that outgrow the embedded store.
package qdrant
