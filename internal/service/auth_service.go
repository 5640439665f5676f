package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"
)

var ErrInvalidCredentials = errors.New("email hoặc mật khẩu không đúng")
var ErrUserAlreadyExists = errors.New("email đã được đăng ký")
var ErrTokenInvalid = errors.New("token không hợp lệ hoặc đã hết hạn")

// ErrValidation và ErrPrecondition là hai loại lỗi nghiệp vụ dùng chung:
// ErrValidation cho đầu vào sai/thiếu, ErrPrecondition cho chuyển trạng thái
// không được phép. Trùng lặp dữ liệu dùng repository.ErrDuplicateEntry.
var ErrValidation = errors.New("dữ liệu không hợp lệ")
var ErrPrecondition = errors.New("trạng thái hiện tại không cho phép thao tác này")

type AuthService struct {
	userRepo           repository.UserRepository
	notifier           ChangeNotifier
	jwtSecret          string
	jwtExpirationHours time.Duration
}

func NewAuthService(userRepo repository.UserRepository, notifier ChangeNotifier, jwtSecret string, jwtExpHours time.Duration) *AuthService {
	return &AuthService{
		userRepo:           userRepo,
		notifier:           notifier,
		jwtSecret:          jwtSecret,
		jwtExpirationHours: jwtExpHours,
	}
}

// Register đăng ký khách hàng tự phục vụ. Khách đăng ký chưa có biển số,
// biển số được gán ở lần đặt chỗ đầu tiên.
func (s *AuthService) Register(ctx context.Context, dto domain.RegisterCustomerDTO) (*domain.User, error) {
	if dto.Name == "" || dto.Email == "" || dto.Password == "" {
		return nil, fmt.Errorf("%w: cần đủ tên, email và mật khẩu", ErrValidation)
	}

	existingUser, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi khi kiểm tra người dùng: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("lỗi hash mật khẩu: %w", err)
	}

	user := &domain.User{
		Name:         dto.Name,
		Email:        dto.Email,
		Password:     null.StringFrom(string(hashedPassword)),
		Role:         domain.RoleCustomer,
		CustomerType: null.StringFrom(domain.CustomerTypeRegistered),
	}

	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("lỗi khi tạo người dùng: %w", err)
	}
	s.notifier.NotifyChange(CollectionUsers, "add")
	createdUser.Password = null.String{}
	return createdUser, nil
}

func (s *AuthService) Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error) {
	user, err := s.userRepo.FindByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lỗi khi tìm người dùng: %w", err)
	}

	// Walk-in không có mật khẩu nên không đăng nhập được
	if !user.Password.Valid {
		return nil, ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Password.String), []byte(dto.Password))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	expirationTime := time.Now().Add(s.jwtExpirationHours)
	customClaims := jwt.MapClaims{
		"sub":   fmt.Sprintf("%d", user.ID),
		"exp":   expirationTime.Unix(),
		"iat":   time.Now().Unix(),
		"role":  user.Role,
		"name":  user.Name,
		"email": user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, customClaims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("lỗi tạo token: %w", err)
	}

	return &domain.AuthResponseDTO{
		Token:  tokenString,
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}

// ValidateToken dùng cho middleware
func (s *AuthService) ValidateToken(tokenString string) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("phương thức ký không mong muốn: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, nil, fmt.Errorf("%w: token có định dạng sai", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("%w: token đã hết hạn", ErrTokenInvalid)
		} else if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, nil, fmt.Errorf("%w: token chưa hợp lệ", ErrTokenInvalid)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, nil, ErrTokenInvalid
	}
	return token, claims, nil
}

// EnsureAdminAccount seed tài khoản admin khi database còn trống,
// tương đương bước populate lúc khởi tạo store.
func (s *AuthService) EnsureAdminAccount(ctx context.Context, name, email, password string) error {
	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("lỗi đếm người dùng: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("lỗi hash mật khẩu admin: %w", err)
	}

	admin := &domain.User{
		Name:     name,
		Email:    email,
		Password: null.StringFrom(string(hashedPassword)),
		Role:     domain.RoleAdmin,
		// Admin không có xe, vehicle_number để null
	}
	if _, err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("lỗi tạo tài khoản admin: %w", err)
	}
	log.Printf("Đã tạo tài khoản admin mặc định: %s", email)
	return nil
}
