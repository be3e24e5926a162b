// Package storage provides durable key/value stores for per-session state:
// carts and queued offline orders survive restarts in one of them.
package storage
