package cache

const (
	// LockFileName is the name of the lock file guarding moves into the cache.
	LockFileName = "_dl_lock"

	// StagingPrefix prefixes every per-download staging directory.
	StagingPrefix = "tmp-"

	// StagedFileName is the fixed name of the in-progress file inside a staging directory.
	StagedFileName = "dl"
)

// urlReplacements is applied in order by EncodeURL. The order is part of the
// cache key format: changing it orphans existing entries.
var urlReplacements = []struct{ old, new string }{
	{"/", "-SLASH-"},
	{":", "-COLON-"},
	{"=", "-EQUAL-"},
	{"?", "-QUESTION-"},
}
