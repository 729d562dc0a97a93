// Package memory configures GOMEMLIMIT from the environment and derives
// byte budgets for in-memory caches (the thumbnail LRU in particular).
package memory
