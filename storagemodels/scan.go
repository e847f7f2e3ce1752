/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// ScanOptions configures how a table backend pages through a query.
type ScanOptions struct {
	PageSize       int32 // Items per backend page (default: 100)
	ConsistentRead bool  // Strongly consistent reads where the backend supports them
}

// ScanOption is a functional option for configuring backend scans
type ScanOption func(*ScanOptions)

// DefaultScanOptions returns default scan options
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		PageSize: 100,
	}
}

// ApplyScanOptions folds opts over the defaults.
func ApplyScanOptions(opts ...ScanOption) ScanOptions {
	options := DefaultScanOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.PageSize < 1 {
		options.PageSize = DefaultScanOptions().PageSize
	}
	return options
}

// WithPageSize sets the backend page size
func WithPageSize(size int32) ScanOption {
	return func(opts *ScanOptions) {
		opts.PageSize = size
	}
}

// WithConsistentRead requests strongly consistent reads
func WithConsistentRead() ScanOption {
	return func(opts *ScanOptions) {
		opts.ConsistentRead = true
	}
}
