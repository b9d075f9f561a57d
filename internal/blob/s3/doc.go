// Package s3 serves archives stored in Amazon S3 or any S3-compatible endpoint.
package s3
