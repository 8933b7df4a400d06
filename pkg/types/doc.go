// Package types defines the vocabulary shared by the tree engine and its
// record stores: nodes, column schemas, predicates and bulk transforms, the
// Store and Backend interfaces, configuration values, and the sentinel error
// taxonomy.
package types
