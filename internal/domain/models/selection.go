package models

// FolderState is the derived tri-state selection of a folder
type FolderState string

const (
	FolderStateNone    FolderState = "none"
	FolderStatePartial FolderState = "partial"
	FolderStateAll     FolderState = "all"
)

// Selection is a point-in-time copy of the selection tracker
type Selection struct {
	ActiveID       string   `json:"active_id"`
	MultiSelectIDs []string `json:"multi_select_ids"`
	ExpandedIDs    []string `json:"expanded_ids"`
}

// ActiveChange accompanies an active-document notification
type ActiveChange struct {
	// SkipAbandonPrompt tells the editing surface not to offer saving the previous
	// document, because it no longer exists in the store.
	SkipAbandonPrompt bool `json:"skip_abandon_prompt"`
}

// ClickModifiers describe the keys held during a click in the tree
type ClickModifiers struct {
	Toggle bool `json:"toggle"` // Ctrl/Cmd: toggle multi-select
	Range  bool `json:"range"`  // Shift: select range from the active document
}
