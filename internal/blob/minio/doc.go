// Package minio serves archives stored on a MinIO server.
package minio
