package models

// FilesView is the data behind the files page and the grid partial
type FilesView struct {
	Entries []ObjectEntry
	Draft   *RenameDraft
	Notice  *Notice
	// Partial is set for htmx swaps so the grid also refreshes the notice area
	Partial      bool
	CSRFToken    string
	UsageEnabled bool
	MaxUploadMB  int64
}

// NewNotice builds a success or failure notice
func NewNotice(success bool, message string) *Notice {
	return &Notice{Success: success, Message: message}
}
