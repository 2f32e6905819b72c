// Package ui renders findings and run outcomes for console operators.
package ui
