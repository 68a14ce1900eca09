// Package notice describes the transient notifications shown after an action
package notice

// Kind is the visual style of a notice
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
	Warning Kind = "warning"
)

// Notice is a toast message
type Notice struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// New builds a notice
func New(kind Kind, title, description string) Notice {
	return Notice{Kind: kind, Title: title, Description: description}
}
