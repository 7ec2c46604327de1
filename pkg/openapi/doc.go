// Package openapi discovers ajax form descriptors from the herd server's
// OpenAPI contract. Loader and Parser implementations live under
// internal/openapi so kin-openapi types stay out of the public API.
package openapi
