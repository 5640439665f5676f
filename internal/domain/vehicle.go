package domain

import "strings"

// NormalizeVehicleNumber chuẩn hóa biển số xe về dạng canonical:
// viết hoa và loại bỏ mọi ký tự ngoài A-Z, 0-9. Trả về chuỗi rỗng cho
// đầu vào rỗng. Hai biển số được coi là cùng một xe khi và chỉ khi
// dạng chuẩn hóa của chúng bằng nhau; kết quả rỗng không bao giờ là
// biển số hợp lệ và phải bị caller từ chối.
func NormalizeVehicleNumber(vehicleNumber string) string {
	upper := strings.ToUpper(vehicleNumber)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
