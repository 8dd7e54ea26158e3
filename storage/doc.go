// Package storage provides the document ingestion pipeline: a uniform
// Backend contract around each storage provider and a Chain that tries the
// backends in a fixed priority order until one accepts the file.
//
// # Backends
//
//   - storage/drive: Google Drive (create + public-read permission)
//   - storage/supabase: Supabase Storage (upsert by object name)
//   - storage/cloudinary: Cloudinary (raw/auto resource modes)
//   - storage/local: local filesystem, the guaranteed terminal fallback
//
// A successful ingest produces a Reference: a backend-tagged pair of view
// and download URLs plus the backend-native identifier. References are
// created once and never mutated; replacing a file produces a new Reference.
package storage
