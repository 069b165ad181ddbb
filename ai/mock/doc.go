// Package mock provides test doubles for the ai interfaces.
//
// The mocks default to deterministic behavior so tests are reproducible,
// and expose function fields for injecting custom behavior or failures.
package mock
