package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository/memory"
	"parking_lot_system/internal/service"
)

func newAuthService(store *memory.Store) *service.AuthService {
	return service.NewAuthService(store.Users(), service.NopNotifier{}, "test-secret", 24*time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)
	ctx := context.Background()

	user, err := as.Register(ctx, domain.RegisterCustomerDTO{
		Name:     "Nguyen Van An",
		Email:    "an@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, user.Role)
	assert.Equal(t, domain.CustomerTypeRegistered, user.CustomerType.String)
	// Biển số chỉ được gán ở lần đặt chỗ đầu tiên
	assert.False(t, user.VehicleNumber.Valid)
	assert.False(t, user.Password.Valid)

	resp, err := as.Login(ctx, domain.LoginUserDTO{Email: "an@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, domain.RoleCustomer, resp.Role)
	require.NotEmpty(t, resp.Token)

	_, claims, err := as.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, claims["role"])
	assert.Equal(t, "Nguyen Van An", claims["name"])
	assert.Equal(t, "an@example.com", claims["email"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)
	ctx := context.Background()

	_, err := as.Register(ctx, domain.RegisterCustomerDTO{Name: "Nguyen Van An", Email: "an@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = as.Register(ctx, domain.RegisterCustomerDTO{Name: "Ke Mao Danh", Email: "an@example.com", Password: "secret456"})
	assert.ErrorIs(t, err, service.ErrUserAlreadyExists)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)
	ctx := context.Background()

	_, err := as.Register(ctx, domain.RegisterCustomerDTO{Name: "Nguyen Van An", Email: "an@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = as.Login(ctx, domain.LoginUserDTO{Email: "an@example.com", Password: "sai-mat-khau"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)

	_, err := as.Login(context.Background(), domain.LoginUserDTO{Email: "khong-ton-tai@example.com", Password: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_WalkInHasNoPassword(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)
	walkIn := seedWalkIn(t, store, "MH12XY99")

	_, err := as.Login(context.Background(), domain.LoginUserDTO{Email: walkIn.Email, Password: ""})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestValidateToken_Garbage(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)

	_, _, err := as.ValidateToken("khong.phai.jwt")
	assert.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestEnsureAdminAccount(t *testing.T) {
	store := memory.NewStore()
	as := newAuthService(store)
	ctx := context.Background()

	require.NoError(t, as.EnsureAdminAccount(ctx, "Admin User", "admin@gmail.com", "123456"))

	admin, err := store.Users().FindByEmail(ctx, "admin@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.False(t, admin.VehicleNumber.Valid)

	// Gọi lại khi đã có người dùng thì không seed thêm
	require.NoError(t, as.EnsureAdminAccount(ctx, "Admin User", "admin@gmail.com", "123456"))
	count, err := store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Đăng nhập được bằng tài khoản seed
	_, err = as.Login(ctx, domain.LoginUserDTO{Email: "admin@gmail.com", Password: "123456"})
	assert.NoError(t, err)
}
