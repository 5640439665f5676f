package service

// ChangeNotifier đẩy sự kiện "collection đã thay đổi" tới các client đang
// đăng ký live-query (qua WebSocket). Khai báo interface ở đây để tránh
// circular dependency với package handler.
type ChangeNotifier interface {
	NotifyChange(collection string, action string)
}

// Tên các collection phát sự kiện thay đổi
const (
	CollectionUsers        = "users"
	CollectionParkingSlots = "parking_slots"
	CollectionHistory      = "parking_history"
	CollectionDeletedUsers = "deleted_users"
)

// NopNotifier dùng khi không cần push real-time (test, tool dòng lệnh).
type NopNotifier struct{}

func (NopNotifier) NotifyChange(string, string) {}
