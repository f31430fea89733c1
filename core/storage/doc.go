// Package storage provides the photo storage collaborator of the engine.
//
// The engine never renders or serves images itself; it only needs to attach a
// photo to a materiel record and hand back a URL. This package wraps the
// MinIO Go client behind a small interface so that both AWS S3 and
// self-hosted MinIO instances work, and so that tests can mock the
// collaborator entirely (see core/storage/mocks).
//
// # Operations
//
//   - BucketExists / MakeBucket: bucket lifecycle.
//   - PutObject: uploads a photo (with size and content type).
//   - GetObject: retrieves a photo as a stream.
//   - RemoveObject: deletes a photo.
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	exists, err := client.BucketExists(ctx, cfg.Bucket)
package storage
