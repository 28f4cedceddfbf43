package models

// TransferOptions tunes a commit or pull
type TransferOptions struct {
	// MaxTransfers bounds concurrent transfers
	MaxTransfers int
	// HashWorkers bounds concurrent hashing during scans
	HashWorkers int
	// BufferSize is the copy buffer size in bytes
	BufferSize int
	// BandwidthLimit is in bytes per second, 0 = unlimited
	BandwidthLimit int64
	ExcludePatterns []string
	DryRun          bool
	// ResolveConflicts lets a commit push local (or a pull fetch remote)
	// for code-4 records. Without it conflicts are skipped.
	ResolveConflicts bool
}

// DefaultTransferOptions returns the stock settings
func DefaultTransferOptions() TransferOptions {
	return TransferOptions{
		MaxTransfers: 10,
		HashWorkers:  4,
		BufferSize:   64 * 1024,
	}
}

// Validate checks option ranges
func (o *TransferOptions) Validate() error {
	if o.MaxTransfers < 1 {
		return &ValidationError{Field: "MaxTransfers", Message: "max transfers must be at least 1"}
	}
	if o.HashWorkers < 1 {
		return &ValidationError{Field: "HashWorkers", Message: "hash workers must be at least 1"}
	}
	if o.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if o.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
