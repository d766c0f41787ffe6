package results

// SetTemplateMsg tells the app to load a template and its values into the
// editor for review.
type SetTemplateMsg struct {
	Template string
	Values   []string
}

// StatusNotifyMsg tells the app to show a message in the status bar.
type StatusNotifyMsg struct {
	Message string
	IsError bool
}
