// Package vector defines the shared model of the agent collection:
//   - Record and Match, the stored and returned shapes
//   - Service, the capability set every storage backend implements
//   - Schema helpers describing the four-field agent layout
//   - index and search parameters, metrics and distances
//   - the error taxonomy shared by all packages
//   - embedding encoding (BLOB) used by SQL backends
package vector
