package models

type User struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	// NotificationAddress is a Telegram chat id or an e-mail address,
	// depending on the configured transport.
	NotificationAddress string `json:"notification_address"`
}
