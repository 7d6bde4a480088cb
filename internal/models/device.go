package models

import "time"

// PushDevice stores a customer's push token for outbound notifications.
type PushDevice struct {
	ID          int       `json:"id"`
	CustomerID  int       `json:"customer_id"`
	DeviceToken string    `json:"device_token"`
	DeviceType  string    `json:"device_type"` // 'android', 'ios', 'web'
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// RegisterDeviceRequest represents the request body for registering a device.
type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
	DeviceType  string `json:"device_type"`
}

// UnregisterDeviceRequest represents the request body for unregistering a device.
type UnregisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}
