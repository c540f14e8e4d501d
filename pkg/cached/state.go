package cached

// EntryState classifies what is at a destination before downloading.
type EntryState int

const (
	// EntryMissing means nothing usable is at the destination.
	EntryMissing EntryState = iota
	// EntryTrusted means a file exists and no digest was requested.
	EntryTrusted
	// EntryValid means a file exists and matches the requested digest.
	EntryValid
	// EntryMismatched means a file exists but does not match the digest.
	EntryMismatched
)

func (s EntryState) String() string {
	switch s {
	case EntryTrusted:
		return "trusted"
	case EntryValid:
		return "valid"
	case EntryMismatched:
		return "mismatched"
	default:
		return "missing"
	}
}
