package models

// CallbackAction type of inline button callback
type CallbackAction string

const (
	CallbackConsentYes  CallbackAction = "yes_calendar"
	CallbackConsentNo   CallbackAction = "no_calendar"
	CallbackProvideData CallbackAction = "provide_data"
	CallbackUpdateData  CallbackAction = "update_data"
	CallbackNextEvents  CallbackAction = "next_events"
)
