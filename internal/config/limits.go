package config

const (
	// MaxTitleLength is the maximum length for node titles, in runes.
	// Matches the rename dialog of the desktop shell.
	MaxTitleLength = 100

	// IllegalTitleChars cannot appear in a title since titles double as export file names.
	IllegalTitleChars = `\/:*?"<>|`

	// MaxBatchDelete caps how many ids a single batch delete request may carry.
	MaxBatchDelete = 1000
)
