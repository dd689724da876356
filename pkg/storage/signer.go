package storage

import "context"

// URLSigner produces time-limited download URLs for bucket objects.
type URLSigner interface {
	SignURL(ctx context.Context, bucket, key string) (string, error)
}
