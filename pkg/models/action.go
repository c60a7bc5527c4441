package models

// Action is an optional inline button attached to an outgoing message
type Action struct {
	Label string
	Data  string
}
