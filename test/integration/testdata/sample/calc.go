// Package sample is a tiny suite used by the integration tests.
package sample

func Add(a, b int) int { return a + b }

func Sub(a, b int) int { return a - b }

func Mul(a, b int) int { return a * b }
