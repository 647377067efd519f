package modules

// Metadata keys set or read by built-in modules.
const (
	KeySourceFilePath   = "SourceFilePath"
	KeySourceFileName   = "SourceFileName"
	KeySourceFileBase   = "SourceFileBase"
	KeySourceFileExt    = "SourceFileExt"
	KeySourceFileDir    = "SourceFileDir"
	KeyRelativeFilePath = "RelativeFilePath"
	KeyRelativeFileDir  = "RelativeFileDir"

	KeyDestinationPath     = "DestinationPath"
	KeyDestinationFilePath = "DestinationFilePath"

	KeyIndex = "Index"

	KeyPageDocuments   = "PageDocuments"
	KeyCurrentPage     = "CurrentPage"
	KeyTotalPages      = "TotalPages"
	KeyTotalItems      = "TotalItems"
	KeyHasNextPage     = "HasNextPage"
	KeyHasPreviousPage = "HasPreviousPage"

	KeyTitle       = "Title"
	KeyExcerpt     = "Excerpt"
	KeyFingerprint = "Fingerprint"
	KeyLinks       = "Links"
)
