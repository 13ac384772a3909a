// Package loader executes a tree of fixture definition scripts against an
// accessor namespace.
//
// Every regular file under the root is a script. Scripts run one at a time in
// ascending order of their slash-separated relative path, so a script may
// refer to labels defined by any script that sorts before it. The interpreter
// is chosen by file extension:
//
//	.yaml, .yml   declarative records with =expr computed values
//	.cue          type definitions and records
//	.js           executable scripts (goja) with the namespace as globals
//
// The first failing script aborts the load with a *LoadError. Definitions
// applied by earlier scripts stay in effect.
package loader
