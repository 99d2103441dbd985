// Package connectors holds the HTTP plumbing shared by the per-dataset source
// connectors in its subpackages. Each subpackage owns exactly one upstream
// integration and its normalizer.
package connectors
