package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
	"github.com/jhoicas/inventario-movimientos/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt ignora todo lo que pase de 72 bytes; se rechaza antes de hashear.
const maxPasswordBytes = 72

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// Session identidad autenticada de una petición. Se construye a partir del token
// verificado y viaja explícitamente hasta los casos de uso.
type Session struct {
	UserID string
	Email  string
	Role   entity.Role
}

// IsManager indica si la sesión puede administrar el catálogo.
func (s Session) IsManager() bool {
	return s.Role == entity.RoleManager
}

// AuthUseCase casos de uso de autenticación: registro, login y tokens.
type AuthUseCase struct {
	userRepo repository.UserRepository
	jwtCfg   JWTConfig
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, jwtCfg: jwtCfg, hashCost: bcrypt.DefaultCost}
}

// WithHashCost cambia el costo de bcrypt (los tests usan bcrypt.MinCost).
func (uc *AuthUseCase) WithHashCost(cost int) *AuthUseCase {
	uc.hashCost = cost
	return uc
}

// RegisterUser crea un usuario con la contraseña hasheada con bcrypt y devuelve token + usuario.
// Email duplicado (sin distinguir mayúsculas) -> ErrDuplicateIdentity; password corto -> ErrWeakCredential.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.LoginResponse, error) {
	email := entity.NormalizeEmail(in.Email)
	if email == "" || in.Name == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(in.Password) < entity.MinPasswordLength {
		return nil, domain.ErrWeakCredential
	}
	if len(in.Password) > maxPasswordBytes {
		return nil, domain.ErrInvalidInput
	}
	role := entity.RoleOperator
	if in.Role != "" {
		parsed, err := entity.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	existing, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.hashCost)
	if err != nil {
		return nil, err
	}
	user, err := entity.NewUser(uuid.New().String(), in.Name, email, string(hash), role, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	// Carrera entre dos registros con el mismo email: el índice único decide y el
	// repositorio traduce la violación a ErrDuplicateIdentity.
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return uc.loginResponse(user)
}

// Login verifica email/password, genera JWT y retorna token + usuario.
// Usuario inexistente y contraseña incorrecta devuelven el mismo ErrInvalidCredentials.
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email := entity.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	user, err := uc.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Mismo costo que una comparación real para no revelar qué emails existen.
		_ = bcrypt.CompareHashAndPassword(uc.dummy(), []byte(in.Password))
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return uc.loginResponse(user)
}

// IssueToken firma un token con los tres claims de la sesión.
func (uc *AuthUseCase) IssueToken(s Session) (string, error) {
	if s.UserID == "" || !s.Role.Valid() {
		return "", domain.ErrInvalidInput
	}
	return jwt.Generate(uc.jwtCfg.Secret, s.UserID, s.Email, s.Role.String(), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
}

// VerifyToken decodifica el token sin tocar el almacenamiento.
func (uc *AuthUseCase) VerifyToken(token string) (Session, error) {
	return VerifyToken(uc.jwtCfg.Secret, token)
}

// VerifyToken valida firma, expiración y rol. Cualquier fallo es ErrInvalidToken.
func VerifyToken(secret, token string) (Session, error) {
	claims, err := jwt.Parse(secret, token)
	if err != nil {
		return Session{}, domain.ErrInvalidToken
	}
	role, err := entity.ParseRole(claims.Role)
	if err != nil {
		return Session{}, domain.ErrInvalidToken
	}
	return Session{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

func (uc *AuthUseCase) loginResponse(u *entity.User) (*dto.LoginResponse, error) {
	token, err := uc.IssueToken(Session{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{Token: token, User: ToUserResponse(u)}, nil
}

func (uc *AuthUseCase) dummy() []byte {
	uc.dummyOnce.Do(func() {
		uc.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), uc.hashCost)
	})
	return uc.dummyHash
}

// ToUserResponse convierte la entidad a DTO (sin hash).
func ToUserResponse(u *entity.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
