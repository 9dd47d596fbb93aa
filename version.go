package stash

var (
	version = "1.0.0" // manually set semantic version number
	commit  string    // automatically set git commit hash

	// Version is the reported engine version, version plus commit when
	// a commit hash was set at build time.
	Version = func() string {
		if commit != "" {
			return version + "-" + commit
		}
		return version + "-dev"
	}()
)
