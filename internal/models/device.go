package models

// DeviceRegistration is a softphone install that receives wake-up pushes.
// The JSON names match what the push endpoint expects as form fields.
type DeviceRegistration struct {
	DeviceToken string `json:"DeviceToken"`
	AppID       string `json:"AppId"`
}
