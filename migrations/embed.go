// Package migrations esquema SQL del libro, embebido en el binario.
package migrations

import "embed"

// Files scripts de migración en orden lexicográfico.
//
//go:embed *.sql
var Files embed.FS
