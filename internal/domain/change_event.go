package domain

import "time"

// CollectionChangeEvent được broadcast qua WebSocket sau mỗi mutation
// thành công để client đăng ký live-query chạy lại truy vấn của mình.
type CollectionChangeEvent struct {
	Collection string    `json:"collection"` // "users" | "parking_slots" | "parking_history" | "deleted_users"
	Action     string    `json:"action"`     // "add" | "update" | "delete"
	At         time.Time `json:"at"`
}
