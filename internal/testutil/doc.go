// Package testutil holds helpers shared by package tests: deterministic run
// ids, throwaway script trees and ready-made namespaces.
package testutil
